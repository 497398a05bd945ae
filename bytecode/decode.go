package bytecode

import "fmt"

// Decode parses the container format produced by Encode into a Module,
// doing only structural parsing. A Module that decodes successfully may still fail
// Validate.
func Decode(data []byte) (*Module, error) {
	r := NewReader(data)

	hdr, err := r.ReadBytes(4)
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	for i := range magic {
		if hdr[i] != magic[i] {
			return nil, r.WrapError("header", fmt.Errorf("not a bytecode module"))
		}
	}

	version, err := r.ReadU32()
	if err != nil {
		return nil, r.WrapError("header", err)
	}
	if version != formatVersion {
		return nil, r.WrapError("header", fmt.Errorf("unsupported format version %d", version))
	}

	name, err := r.ReadName()
	if err != nil {
		return nil, r.WrapError("name", err)
	}

	poolLen, err := r.ReadU32()
	if err != nil {
		return nil, r.WrapError("pool", err)
	}
	pool := NewPool()
	for i := uint32(0); i < poolLen; i++ {
		kindByte, err := r.ReadBytes(1)
		if err != nil {
			return nil, r.WrapError("pool entry", err)
		}
		kind := ConstKind(kindByte[0])
		var c Const
		c.Kind = kind
		switch kind {
		case ConstNumber:
			c.Number, err = r.ReadF64()
		case ConstString, ConstBigInt:
			c.Str, err = r.ReadName()
		default:
			err = fmt.Errorf("unknown constant kind %d", kind)
		}
		if err != nil {
			return nil, r.WrapError("pool entry", err)
		}
		pool.Add(c)
	}

	fnLen, err := r.ReadU32()
	if err != nil {
		return nil, r.WrapError("functions", err)
	}
	functions := make([]*Function, 0, fnLen)
	for i := uint32(0); i < fnLen; i++ {
		fn, err := decodeFunction(r)
		if err != nil {
			return nil, err
		}
		functions = append(functions, fn)
	}

	return &Module{Name: name, Pool: pool, Functions: functions}, nil
}

func decodeFunction(r *Reader) (*Function, error) {
	name, err := r.ReadName()
	if err != nil {
		return nil, r.WrapError("function name", err)
	}
	numParams, err := r.ReadU32()
	if err != nil {
		return nil, r.WrapError("function header", err)
	}
	numRegisters, err := r.ReadU32()
	if err != nil {
		return nil, r.WrapError("function header", err)
	}
	upvalueCount, err := r.ReadU32()
	if err != nil {
		return nil, r.WrapError("function header", err)
	}
	flagsByte, err := r.ReadBytes(1)
	if err != nil {
		return nil, r.WrapError("function header", err)
	}
	flags := flagsByte[0]

	codeLen, err := r.ReadU32()
	if err != nil {
		return nil, r.WrapError("function code", err)
	}
	code, err := r.ReadBytes(int(codeLen))
	if err != nil {
		return nil, r.WrapError("function code", err)
	}

	excLen, err := r.ReadU32()
	if err != nil {
		return nil, r.WrapError("exception table", err)
	}
	exceptions := make([]ExceptionEntry, 0, excLen)
	for i := uint32(0); i < excLen; i++ {
		start, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("exception entry", err)
		}
		end, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("exception entry", err)
		}
		handler, err := r.ReadU32()
		if err != nil {
			return nil, r.WrapError("exception entry", err)
		}
		isFinallyByte, err := r.ReadBytes(1)
		if err != nil {
			return nil, r.WrapError("exception entry", err)
		}
		exceptions = append(exceptions, ExceptionEntry{
			StartPC: start, EndPC: end, HandlerPC: handler, IsFinally: isFinallyByte[0] != 0,
		})
	}

	return &Function{
		Name:         name,
		NumParams:    int(numParams),
		NumRegisters: int(numRegisters),
		Code:         code,
		Exceptions:   exceptions,
		IsGenerator:  flags&1 != 0,
		IsAsync:      flags&2 != 0,
		UpvalueCount: int(upvalueCount),
	}, nil
}
