package bencode

type frame struct {
	dict      bool
	expectKey bool
}

// scan validates the structure of b without recursion.
// It checks nesting depth, string lengths, integer syntax, dictionary keys and trailing data.
func scan(b []byte, maxDepth int) error {
	if len(b) == 0 {
		return &SyntaxError{0, "empty input"}
	}
	var stack []frame
	i := 0
	for {
		if i >= len(b) {
			return &SyntaxError{i, "unexpected end of input"}
		}
		expectKey := len(stack) > 0 && stack[len(stack)-1].expectKey
		c := b[i]
		switch {
		case c == 'e':
			if len(stack) == 0 {
				return &SyntaxError{i, "unexpected end marker"}
			}
			top := stack[len(stack)-1]
			if top.dict && !top.expectKey {
				return &SyntaxError{i, "missing dictionary value"}
			}
			stack = stack[:len(stack)-1]
			i++
		case c == 'l' || c == 'd':
			if expectKey {
				return &SyntaxError{i, "dictionary key must be a byte string"}
			}
			if len(stack) >= maxDepth {
				return ErrTooDeep
			}
			stack = append(stack, frame{dict: c == 'd', expectKey: c == 'd'})
			i++
			continue
		case c == 'i':
			if expectKey {
				return &SyntaxError{i, "dictionary key must be a byte string"}
			}
			end, err := scanInt(b, i+1)
			if err != nil {
				return err
			}
			i = end + 1
		case c >= '0' && c <= '9':
			end, err := scanString(b, i)
			if err != nil {
				return err
			}
			i = end
		default:
			return &SyntaxError{i, "invalid character"}
		}
		// a value has been completed
		if len(stack) == 0 {
			if i != len(b) {
				return &SyntaxError{i, "trailing data"}
			}
			return nil
		}
		if top := &stack[len(stack)-1]; top.dict {
			top.expectKey = !top.expectKey
		}
	}
}

// scanInt validates the digits of an integer starting at i and returns the index of the closing 'e'.
func scanInt(b []byte, i int) (int, error) {
	start := i
	if i < len(b) && b[i] == '-' {
		i++
	}
	digits := i
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		i++
	}
	if i >= len(b) || b[i] != 'e' {
		return 0, &SyntaxError{i, "invalid integer"}
	}
	n := i - digits
	switch {
	case n == 0:
		return 0, &SyntaxError{start, "empty integer"}
	case n > 19:
		return 0, &SyntaxError{start, "integer overflow"}
	case b[digits] == '0' && (n > 1 || digits != start):
		return 0, &SyntaxError{start, "invalid leading zero"}
	}
	return i, nil
}

// scanString validates a length-prefixed string starting at i and returns the index after it.
func scanString(b []byte, i int) (int, error) {
	start := i
	var n int
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		if i-start >= 10 {
			return 0, &SyntaxError{start, "string length overflow"}
		}
		n = n*10 + int(b[i]-'0')
		i++
	}
	if i >= len(b) || b[i] != ':' {
		return 0, &SyntaxError{i, "missing string length separator"}
	}
	if b[start] == '0' && i-start > 1 {
		return 0, &SyntaxError{start, "invalid leading zero"}
	}
	i++
	if n > len(b)-i {
		return 0, &SyntaxError{start, "string exceeds input"}
	}
	return i + n, nil
}
