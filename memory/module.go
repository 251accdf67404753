package memory

// Binary encoding of the smallest module that owns a memory:
//
//	(module (memory (export "<name>") <min> <max>))

const (
	wasmMagic   = 0x6d736100 // \0asm
	wasmVersion = 1

	sectionMemory = 0x05
	sectionExport = 0x07

	limitsMinMax   = 0x01
	externalMemory = 0x02
)

func memoryModule(exportName string, minPages, maxPages uint32) []byte {
	out := make([]byte, 0, 32+len(exportName))
	out = appendU32LE(out, wasmMagic)
	out = appendU32LE(out, wasmVersion)

	var mem []byte
	mem = appendLEB128u(mem, 1)
	mem = append(mem, limitsMinMax)
	mem = appendLEB128u(mem, minPages)
	mem = appendLEB128u(mem, maxPages)
	out = appendSection(out, sectionMemory, mem)

	var exp []byte
	exp = appendLEB128u(exp, 1)
	exp = appendLEB128u(exp, uint32(len(exportName)))
	exp = append(exp, exportName...)
	exp = append(exp, externalMemory)
	exp = appendLEB128u(exp, 0)
	out = appendSection(out, sectionExport, exp)

	return out
}

func appendSection(out []byte, id byte, content []byte) []byte {
	out = append(out, id)
	out = appendLEB128u(out, uint32(len(content)))
	return append(out, content...)
}

func appendU32LE(out []byte, v uint32) []byte {
	return append(out, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// appendLEB128u appends the unsigned LEB128 encoding of v.
func appendLEB128u(out []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}
