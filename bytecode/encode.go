package bytecode

// Encode serializes m into the container format Decode reads back,
// framed the way a wasm binary writer frames sections:
// a magic header, then length-prefixed records throughout.
func Encode(m *Module) []byte {
	w := NewWriter()
	w.WriteBytes(magic[:])
	w.WriteU32(formatVersion)
	w.WriteName(m.Name)

	pool := m.Pool.Entries()
	w.WriteU32(uint32(len(pool)))
	for _, c := range pool {
		w.Byte(byte(c.Kind))
		switch c.Kind {
		case ConstNumber:
			w.WriteF64(c.Number)
		case ConstString, ConstBigInt:
			w.WriteName(c.Str)
		}
	}

	w.WriteU32(uint32(len(m.Functions)))
	for _, fn := range m.Functions {
		w.WriteName(fn.Name)
		w.WriteU32(uint32(fn.NumParams))
		w.WriteU32(uint32(fn.NumRegisters))
		w.WriteU32(uint32(fn.UpvalueCount))
		var flags byte
		if fn.IsGenerator {
			flags |= 1
		}
		if fn.IsAsync {
			flags |= 2
		}
		w.Byte(flags)

		w.WriteU32(uint32(len(fn.Code)))
		w.WriteBytes(fn.Code)

		w.WriteU32(uint32(len(fn.Exceptions)))
		for _, e := range fn.Exceptions {
			w.WriteU32(e.StartPC)
			w.WriteU32(e.EndPC)
			w.WriteU32(e.HandlerPC)
			if e.IsFinally {
				w.Byte(1)
			} else {
				w.Byte(0)
			}
		}
	}
	return w.Bytes()
}
