package isa

import "fmt"

// 指令格式: 16 位字, opcode 占高 4 位, 其余字段依指令而定。
//
//	BRnzp:  0001 nnn iiiiiiii        (nzp 条件 + 8 位目标地址)
//	三操作数: oooo dddd ssss tttt    (ADD/SUB/MUL/DIV)
//	访存:    oooo dddd ssss 0000     (LDR/LDS)
//	         oooo 0000 ssss tttt     (STR/STS)
//	CONST:  1001 dddd iiiiiiii
//	JMP:    1010 0000 ssss 0000      (目标地址取自寄存器 Rs)
//	RECONV: 1011 0000 0000 0000      (显式汇合点)
type Opcode uint8

const (
	OpNop    Opcode = 0b0000
	OpBrnzp  Opcode = 0b0001
	OpCmp    Opcode = 0b0010
	OpAdd    Opcode = 0b0011
	OpSub    Opcode = 0b0100
	OpMul    Opcode = 0b0101
	OpDiv    Opcode = 0b0110
	OpLdr    Opcode = 0b0111
	OpStr    Opcode = 0b1000
	OpConst  Opcode = 0b1001
	OpJmp    Opcode = 0b1010
	OpReconv Opcode = 0b1011
	OpLds    Opcode = 0b1100
	OpSts    Opcode = 0b1101
	OpRet    Opcode = 0b1111
)

func (this Opcode) String() string {
	switch this {
	case OpNop:
		return "NOP"
	case OpBrnzp:
		return "BRnzp"
	case OpCmp:
		return "CMP"
	case OpAdd:
		return "ADD"
	case OpSub:
		return "SUB"
	case OpMul:
		return "MUL"
	case OpDiv:
		return "DIV"
	case OpLdr:
		return "LDR"
	case OpStr:
		return "STR"
	case OpConst:
		return "CONST"
	case OpJmp:
		return "JMP"
	case OpReconv:
		return "RECONV"
	case OpLds:
		return "LDS"
	case OpSts:
		return "STS"
	case OpRet:
		return "RET"
	default:
		return "???"
	}
}

// Register aliases. Registers 13-15 are read-only identity registers computed
// per thread at block launch.
const (
	R0 = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	R12
	BlockIdx  = 13
	BlockDim  = 14
	ThreadIdx = 15
)

const (
	NumRegisters   = 16
	NumGpRegisters = 13
)

// Instruction is the decoded form of one 16-bit word. Decoding is total: a
// word whose opcode has no defined meaning yields Unknown=true and is never
// silently treated as a NOP.
type Instruction struct {
	Word    uint16
	Op      Opcode
	Rd      int
	Rs      int
	Rt      int
	Imm8    int
	Nzp     uint8
	Unknown bool
}

// Decode extracts every field form of the word; the executing core picks the
// fields its opcode defines.
func Decode(word uint16) Instruction {
	inst := Instruction{
		Word: word,
		Op:   Opcode(word >> 12),
		Rd:   int(word>>8) & 0xF,
		Rs:   int(word>>4) & 0xF,
		Rt:   int(word) & 0xF,
		Imm8: int(word) & 0xFF,
		Nzp:  uint8(word>>9) & 0b111,
	}

	switch inst.Op {
	case OpNop, OpBrnzp, OpCmp, OpAdd, OpSub, OpMul, OpDiv,
		OpLdr, OpStr, OpConst, OpJmp, OpReconv, OpLds, OpSts, OpRet:
	default:
		inst.Unknown = true
	}

	return inst
}

// Encode is the inverse of Decode for all defined opcodes.
func Encode(inst Instruction) (uint16, error) {
	switch inst.Op {
	case OpNop:
		return Nop(), nil
	case OpBrnzp:
		return Brnzp(inst.Nzp, inst.Imm8), nil
	case OpCmp:
		return Cmp(inst.Rs, inst.Rt), nil
	case OpAdd:
		return Add(inst.Rd, inst.Rs, inst.Rt), nil
	case OpSub:
		return Sub(inst.Rd, inst.Rs, inst.Rt), nil
	case OpMul:
		return Mul(inst.Rd, inst.Rs, inst.Rt), nil
	case OpDiv:
		return Div(inst.Rd, inst.Rs, inst.Rt), nil
	case OpLdr:
		return Ldr(inst.Rd, inst.Rs), nil
	case OpStr:
		return Str(inst.Rs, inst.Rt), nil
	case OpConst:
		return Const(inst.Rd, inst.Imm8), nil
	case OpJmp:
		return Jmp(inst.Rs), nil
	case OpReconv:
		return Reconv(), nil
	case OpLds:
		return Lds(inst.Rd, inst.Rs), nil
	case OpSts:
		return Sts(inst.Rs, inst.Rt), nil
	case OpRet:
		return Ret(), nil
	default:
		return 0, fmt.Errorf("cannot encode unknown opcode %04b", uint8(inst.Op))
	}
}

func threeOperand(op Opcode, rd int, rs int, rt int) uint16 {
	return uint16(op)<<12 | uint16(rd&0xF)<<8 | uint16(rs&0xF)<<4 | uint16(rt&0xF)
}

// Nop 空操作。
func Nop() uint16 {
	return uint16(OpNop) << 12
}

// Brnzp 条件分支: 线程自身的 {N,Z,P} 与 nzp 掩码相交则跳转到 imm8。
func Brnzp(nzp uint8, imm8 int) uint16 {
	return uint16(OpBrnzp)<<12 | uint16(nzp&0b111)<<9 | uint16(imm8&0xFF)
}

// Brn branches when the last CMP set N (Rs < Rt).
func Brn(imm8 int) uint16 {
	return Brnzp(0b100, imm8)
}

// Brz branches when the last CMP set Z (Rs == Rt).
func Brz(imm8 int) uint16 {
	return Brnzp(0b010, imm8)
}

// Brp branches when the last CMP set P (Rs > Rt).
func Brp(imm8 int) uint16 {
	return Brnzp(0b001, imm8)
}

// Br branches unconditionally (all three condition bits set).
func Br(imm8 int) uint16 {
	return Brnzp(0b111, imm8)
}

// Cmp 比较 Rs 和 Rt, 设置每线程的 NZP 标志。
func Cmp(rs int, rt int) uint16 {
	return threeOperand(OpCmp, 0, rs, rt)
}

// Add Rd = Rs + Rt.
func Add(rd int, rs int, rt int) uint16 {
	return threeOperand(OpAdd, rd, rs, rt)
}

// Sub Rd = Rs - Rt.
func Sub(rd int, rs int, rt int) uint16 {
	return threeOperand(OpSub, rd, rs, rt)
}

// Mul Rd = Rs * Rt.
func Mul(rd int, rs int, rt int) uint16 {
	return threeOperand(OpMul, rd, rs, rt)
}

// Div Rd = Rs / Rt (整数除法, Rt 为零时触发 ArithmeticFault)。
func Div(rd int, rs int, rt int) uint16 {
	return threeOperand(OpDiv, rd, rs, rt)
}

// Ldr Rd = global[Rs].
func Ldr(rd int, rs int) uint16 {
	return threeOperand(OpLdr, rd, rs, 0)
}

// Str global[Rs] = Rt.
func Str(rs int, rt int) uint16 {
	return threeOperand(OpStr, 0, rs, rt)
}

// Const Rd = imm8 (零扩展)。
func Const(rd int, imm8 int) uint16 {
	return uint16(OpConst)<<12 | uint16(rd&0xF)<<8 | uint16(imm8&0xFF)
}

// Jmp 无条件跳转到寄存器 Rs 中保存的地址。
func Jmp(rs int) uint16 {
	return threeOperand(OpJmp, 0, rs, 0)
}

// Reconv marks an explicit reconvergence point for the divergence stack.
func Reconv() uint16 {
	return uint16(OpReconv) << 12
}

// Lds Rd = shared[Rs].
func Lds(rd int, rs int) uint16 {
	return threeOperand(OpLds, rd, rs, 0)
}

// Sts shared[Rs] = Rt.
func Sts(rs int, rt int) uint16 {
	return threeOperand(OpSts, 0, rs, rt)
}

// Ret 线程结束。
func Ret() uint16 {
	return uint16(OpRet) << 12
}

func registerName(index int) string {
	switch index {
	case BlockIdx:
		return "%blockIdx"
	case BlockDim:
		return "%blockDim"
	case ThreadIdx:
		return "%threadIdx"
	default:
		return fmt.Sprintf("R%d", index)
	}
}

// Disassemble renders one word as assembly text.
func Disassemble(word uint16) string {
	inst := Decode(word)

	switch inst.Op {
	case OpNop:
		return "NOP"
	case OpBrnzp:
		suffix := ""
		if inst.Nzp&0b100 != 0 {
			suffix += "n"
		}
		if inst.Nzp&0b010 != 0 {
			suffix += "z"
		}
		if inst.Nzp&0b001 != 0 {
			suffix += "p"
		}
		return fmt.Sprintf("BR%s #%d", suffix, inst.Imm8)
	case OpCmp:
		return fmt.Sprintf("CMP %s, %s", registerName(inst.Rs), registerName(inst.Rt))
	case OpAdd, OpSub, OpMul, OpDiv:
		return fmt.Sprintf("%s %s, %s, %s",
			inst.Op, registerName(inst.Rd), registerName(inst.Rs), registerName(inst.Rt))
	case OpLdr:
		return fmt.Sprintf("LDR %s, [%s]", registerName(inst.Rd), registerName(inst.Rs))
	case OpStr:
		return fmt.Sprintf("STR [%s], %s", registerName(inst.Rs), registerName(inst.Rt))
	case OpConst:
		return fmt.Sprintf("CONST %s, #%d", registerName(inst.Rd), inst.Imm8)
	case OpJmp:
		return fmt.Sprintf("JMP %s", registerName(inst.Rs))
	case OpReconv:
		return "RECONV"
	case OpLds:
		return fmt.Sprintf("LDS %s, [%s]", registerName(inst.Rd), registerName(inst.Rs))
	case OpSts:
		return fmt.Sprintf("STS [%s], %s", registerName(inst.Rs), registerName(inst.Rt))
	case OpRet:
		return "RET"
	default:
		return fmt.Sprintf("??? %016b", word)
	}
}

// FormatProgram renders a whole program as numbered assembly lines.
func FormatProgram(program []uint16) []string {
	lines := make([]string, 0, len(program))
	for i, word := range program {
		lines = append(lines, fmt.Sprintf("%3d: 0b%016b  # %s", i, word, Disassemble(word)))
	}
	return lines
}
