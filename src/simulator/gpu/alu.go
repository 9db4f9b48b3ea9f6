package gpu

import "tinygpu/src/isa"

// AluExecute applies one two-operand arithmetic opcode to a single lane's
// operands. ADD/SUB/MUL wrap on overflow (no trap); DIV truncates toward
// zero and reports ok=false for a zero divisor, in which case the lane's
// step is aborted and an ArithmeticFault raised by the caller.
func AluExecute(op isa.Opcode, a int32, b int32) (int32, bool) {
	switch op {
	case isa.OpAdd:
		return a + b, true
	case isa.OpSub:
		return a - b, true
	case isa.OpMul:
		return a * b, true
	case isa.OpDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	default:
		return 0, true
	}
}

// AluCompare produces the mutually exclusive NZP condition bits for CMP.
func AluCompare(a int32, b int32) (n bool, z bool, p bool) {
	return a < b, a == b, a > b
}
