package benchmarks

import (
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

const (
	rV1 = 3
	rT0 = 8
	rT1 = 9
	rT2 = 10
	rT3 = 11
	rT4 = 12
	rS0 = 16
)

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets a specific pipeline characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		loadUse(),
		memorySequential(),
		partialWord(),
		functionCalls(),
		branchLoop(),
		arraySum(),
	}
}

// GetCoreBenchmarks returns a minimal set of benchmarks for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		branchLoop(),
		loadUse(),
		partialWord(),
	}
}

// exitWith moves reg into $a0 and calls exit.
func exitWith(reg uint8) []uint32 {
	return []uint32{
		insts.ADDU(emu.RegA0, reg, 0),
		insts.ADDIU(emu.RegV0, 0, int16(emu.SyscallExit)),
		insts.SYSCALL(),
	}
}

func program(body []uint32, exitReg uint8) []byte {
	return BuildProgram(append(body, exitWith(exitReg)...)...)
}

// dataBase loads DataAddr into $s0.
func dataBase() uint32 {
	return insts.LUI(rS0, uint16(DataAddr>>16))
}

func fillWords(n int) func(*emu.Memory) {
	return func(memory *emu.Memory) {
		for i := 0; i < n; i++ {
			memory.WriteWord(DataAddr+uint32(4*i), uint32(i+1))
		}
	}
}

// 1. Arithmetic Sequential - independent ALU operations, no forwarding
func arithmeticSequential() Benchmark {
	var body []uint32
	for i := 0; i < 4; i++ {
		for r := uint8(rT0); r <= rT4; r++ {
			body = append(body, insts.ADDIU(r, r, 1))
		}
	}

	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 ADDIUs over 5 registers - measures base throughput",
		Program:      program(body, rT0),
		ExpectedExit: 4,
	}
}

// 2. Dependency Chain - every instruction needs the previous result
func dependencyChain() Benchmark {
	var body []uint32
	for i := 0; i < 20; i++ {
		body = append(body, insts.ADDIU(rT0, rT0, 1))
	}

	return Benchmark{
		Name:         "dependency_chain",
		Description:  "20 dependent ADDIUs - every operand comes from ES_TO_DS",
		Program:      program(body, rT0),
		ExpectedExit: 20,
	}
}

// 3. Load-Use - each load is consumed by the next instruction
func loadUse() Benchmark {
	body := []uint32{dataBase()}
	for i := 0; i < 8; i++ {
		body = append(body,
			insts.Load(insts.OpcodeLW, rT1, rS0, int16(4*i)),
			insts.ADDU(rT0, rT0, rT1),
		)
	}

	return Benchmark{
		Name:         "load_use",
		Description:  "8 LW/ADDU pairs - one load-use stall each",
		Setup:        fillWords(8),
		Program:      program(body, rT0),
		ExpectedExit: 36,
	}
}

// 4. Memory Sequential - stores then loads over consecutive words
func memorySequential() Benchmark {
	body := []uint32{dataBase()}
	for i := 0; i < 8; i++ {
		body = append(body,
			insts.ADDIU(rT1, 0, int16(i+1)),
			insts.Store(insts.OpcodeSW, rT1, rS0, int16(4*i)),
		)
	}
	for i := 0; i < 8; i++ {
		body = append(body,
			insts.Load(insts.OpcodeLW, rT2, rS0, int16(4*i)),
			insts.ADDIU(rT3, rT3, 1),
			insts.ADDU(rT0, rT0, rT2),
		)
	}

	return Benchmark{
		Name:         "memory_sequential",
		Description:  "8 SWs then 8 LWs - store/load round trip through the cache",
		Program:      program(body, rT0),
		ExpectedExit: 36,
	}
}

// 5. Partial Word - LWL/LWR merges and SWL/SWR partial stores
func partialWord() Benchmark {
	body := []uint32{
		dataBase(),
		insts.Load(insts.OpcodeLWL, rT0, rS0, 1),
		insts.Load(insts.OpcodeLWR, rT0, rS0, 4),
		insts.Store(insts.OpcodeSWL, rT0, rS0, 6),
		insts.Store(insts.OpcodeSWR, rT0, rS0, 9),
		insts.Load(insts.OpcodeLBU, rT1, rS0, 7),
		insts.Load(insts.OpcodeLBU, rT2, rS0, 6),
		insts.Load(insts.OpcodeLHU, rT3, rS0, 8),
		insts.ADDU(rT4, rT1, rT2),
		insts.ADDU(rT4, rT4, rT3),
	}

	return Benchmark{
		Name:        "partial_word",
		Description: "word-left/word-right loads and stores with byte/half readback",
		Setup: func(memory *emu.Memory) {
			memory.WriteWord(DataAddr, 0x04030201)
			memory.WriteWord(DataAddr+4, 0x08070605)
		},
		Program:      program(body, rT4),
		ExpectedExit: 0x040A,
	}
}

// 6. Function Calls - JAL/JR with the body in the delay slot
func functionCalls() Benchmark {
	leaf := ProgramAddr + 13*4

	var body []uint32
	for i := 0; i < 5; i++ {
		body = append(body, insts.JAL(leaf), insts.NOP())
	}
	body = append(body, exitWith(rV1)...)
	body = append(body,
		insts.JR(emu.RegRA),
		insts.ADDIU(rV1, rV1, 3),
	)

	return Benchmark{
		Name:         "function_calls",
		Description:  "5 calls to a leaf that returns from its delay slot",
		Program:      BuildProgram(body...),
		ExpectedExit: 15,
	}
}

// 7. Branch Loop - counted loop with a not-taken exit
func branchLoop() Benchmark {
	body := []uint32{
		insts.ADDIU(rT0, 0, 10),
		insts.ADDIU(rT1, rT1, 2),
		insts.ADDIU(rT0, rT0, -1),
		insts.BNE(rT0, 0, -3),
		insts.NOP(),
	}

	return Benchmark{
		Name:         "branch_loop",
		Description:  "10-iteration loop - BNE resolved in decode with a delay slot",
		Program:      program(body, rT1),
		ExpectedExit: 20,
	}
}

// 8. Array Sum - loop over memory with the pointer bump hiding the load
func arraySum() Benchmark {
	body := []uint32{
		dataBase(),
		insts.ADDIU(rT2, 0, 16),
		insts.Load(insts.OpcodeLW, rT1, rS0, 0),
		insts.ADDIU(rS0, rS0, 4),
		insts.ADDU(rT0, rT0, rT1),
		insts.ADDIU(rT2, rT2, -1),
		insts.BNE(rT2, 0, -5),
		insts.NOP(),
	}

	return Benchmark{
		Name:         "array_sum",
		Description:  "sum of 16 words - load latency covered by an independent ADDIU",
		Setup:        fillWords(16),
		Program:      program(body, rT0),
		ExpectedExit: 136,
	}
}
