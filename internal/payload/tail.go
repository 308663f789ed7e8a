package payload

// tail keeps the last n bytes written to it.
type tail struct {
	buf []byte
	n   int
	cut bool
}

func newTail(n int) *tail {
	return &tail{buf: make([]byte, 0, n), n: n}
}

func (t *tail) Write(p []byte) (int, error) {
	written := len(p)
	if len(p) >= t.n {
		t.buf = append(t.buf[:0], p[len(p)-t.n:]...)
		t.cut = true
		return written, nil
	}
	if over := len(t.buf) + len(p) - t.n; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
		t.cut = true
	}
	t.buf = append(t.buf, p...)
	return written, nil
}

// String returns the kept bytes, prefixed with "..." when output was cut.
func (t *tail) String() string {
	if t.cut {
		return "..." + string(t.buf)
	}
	return string(t.buf)
}
