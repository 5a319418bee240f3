package bus

// Field names used by the default layouts.
const (
	FieldBrStall  = "br_stall"
	FieldBrTaken  = "br_taken"
	FieldBrTarget = "br_target"

	FieldInst = "inst"
	FieldPC   = "pc"

	FieldALUOp      = "alu_op"
	FieldMemKind    = "mem_kind"
	FieldSrc1IsSA   = "src1_is_sa"
	FieldSrc1IsPC   = "src1_is_pc"
	FieldSrc2IsImm  = "src2_is_imm"
	FieldSrc2IsZImm = "src2_is_zimm"
	FieldSrc2Is8    = "src2_is_8"
	FieldResFromMem = "res_from_mem"
	FieldGRWE       = "gr_we"
	FieldMemWE      = "mem_we"
	FieldOverflowEn = "overflow_en"
	FieldSyscall    = "syscall"
	FieldRs         = "rs"
	FieldRt         = "rt"
	FieldDest       = "dest"
	FieldImm        = "imm"
	FieldRsValue    = "rs_value"
	FieldRtValue    = "rt_value"

	FieldByteEn    = "byte_en"
	FieldALUResult = "alu_result"

	FieldFinalResult = "final_result"

	FieldRFWE    = "rf_we"
	FieldRFWAddr = "rf_waddr"
	FieldRFWData = "rf_wdata"

	FieldLoadOp = "load_op"
	FieldResult = "result"
)

var defaultFields = map[Name][]Field{
	BrBus: {
		{FieldBrStall, 1},
		{FieldBrTaken, 1},
		{FieldBrTarget, 32},
	},
	FSToDS: {
		{FieldInst, 32},
		{FieldPC, 32},
	},
	DSToES: {
		{FieldALUOp, 12},
		{FieldMemKind, 3},
		{FieldSrc1IsSA, 1},
		{FieldSrc1IsPC, 1},
		{FieldSrc2IsImm, 1},
		{FieldSrc2IsZImm, 1},
		{FieldSrc2Is8, 1},
		{FieldResFromMem, 1},
		{FieldGRWE, 1},
		{FieldMemWE, 1},
		{FieldOverflowEn, 1},
		{FieldSyscall, 1},
		{FieldRs, 5},
		{FieldRt, 5},
		{FieldDest, 5},
		{FieldImm, 16},
		{FieldRsValue, 32},
		{FieldRtValue, 32},
		{FieldPC, 32},
	},
	ESToMS: {
		{FieldMemKind, 3},
		{FieldResFromMem, 1},
		{FieldMemWE, 1},
		{FieldSyscall, 1},
		{FieldDest, 5},
		{FieldByteEn, 4},
		{FieldRtValue, 32},
		{FieldALUResult, 32},
		{FieldPC, 32},
	},
	MSToWS: {
		{FieldGRWE, 1},
		{FieldDest, 5},
		{FieldFinalResult, 32},
		{FieldPC, 32},
	},
	WSToRF: {
		{FieldRFWE, 1},
		{FieldRFWAddr, 5},
		{FieldRFWData, 32},
	},
	ESToDS: {
		{FieldLoadOp, 1},
		{FieldDest, 5},
		{FieldResult, 32},
	},
	MSToDS: {
		{FieldDest, 5},
		{FieldResult, 32},
	},
}

// DefaultFields returns a copy of the default field layout of a bus, or nil
// for an unknown bus.
func DefaultFields(name Name) []Field {
	fields, ok := defaultFields[name]
	if !ok {
		return nil
	}
	return append([]Field(nil), fields...)
}
