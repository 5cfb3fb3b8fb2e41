package scan

// Read runs p and labels any syntax error it returns.
func Read[T any](c *Cursor, label string, p func(*Cursor) (T, error)) (T, error) {
	v, err := p(c)
	return v, Tag(label, err)
}

// Terminated reads a value with p and then requires sep after it.
func Terminated[T any](c *Cursor, label string, p func(*Cursor) (T, error), sep string) (T, error) {
	v, err := Read(c, label, p)
	if err != nil {
		return v, err
	}
	if err := c.Literal(sep); err != nil {
		var zero T
		return zero, Tag(label, err)
	}
	return v, nil
}

// Preceded requires sep and then reads a value with p.
func Preceded[T any](c *Cursor, label string, sep string, p func(*Cursor) (T, error)) (T, error) {
	if err := c.Literal(sep); err != nil {
		var zero T
		return zero, Tag(label, err)
	}
	return Read(c, label, p)
}

// Optional runs p and rewinds the cursor if it fails.
func Optional[T any](c *Cursor, p func(*Cursor) (T, error)) (T, bool) {
	start := c.Pos()
	v, err := p(c)
	if err != nil {
		c.Reset(start)
		var zero T
		return zero, false
	}
	return v, true
}

// Uint32Then returns a parser that reads a uint32 followed by sep.
func Uint32Then(sep string) func(*Cursor) (uint32, error) {
	return func(c *Cursor) (uint32, error) {
		n, err := c.Uint32()
		if err != nil {
			return 0, err
		}
		if err := c.Literal(sep); err != nil {
			return 0, err
		}
		return n, nil
	}
}
