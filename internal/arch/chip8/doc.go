// Package chip8 provides CHIP-8 instruction formatting and program listings.
//
// # Instruction Set
//
// CHIP-8 has a simple instruction set with 35 opcodes:
//   - All instructions are 2 bytes (16 bits), stored big-endian
//   - Instructions use direct addressing with 12-bit addresses
//   - 16 general-purpose 8-bit registers (V0-VF)
//   - Special-purpose registers: I (16-bit), PC, SP, DT, ST
//
// Opcodes are identified using the instruction table of retrogolib, which
// groups all opcodes by their first nibble and matches them by mask and value.
//
// # Formatting
//
// Format returns the assembler text of a single opcode word. It is used by the
// execution trace of the emulator.
//
// # Listings
//
// A Listing separates code from data by following the control flow of a
// program image from its entry point:
//  1. Jumps and calls add their target address
//  2. Conditional skips add both the next and the skipped-to instruction
//  3. LD I, addr marks the referenced address as data (sprites, BCD buffers)
//  4. Unknown opcode words end the current path and are output as data
//
// Computed jumps (JP V0, addr) can not be followed statically.
//
// # Usage Example
//
//	listing := chip8.NewListing(program, chip8.ProgramStart, chip8.ListingOptions{HexComments: true})
//	if err := listing.Write(os.Stdout); err != nil {
//		return fmt.Errorf("writing listing: %w", err)
//	}
package chip8
