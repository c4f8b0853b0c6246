package runner

// tail keeps the most recent lines of subprocess output in a fixed-size ring.
type tail struct {
	buf   []string
	next  int
	count int
}

func newTail(capacity int) *tail {
	if capacity <= 0 {
		capacity = 1
	}
	return &tail{buf: make([]string, capacity)}
}

func (t *tail) append(line string) {
	t.buf[t.next] = line
	t.next = (t.next + 1) % len(t.buf)
	if t.count < len(t.buf) {
		t.count++
	}
}

// lines returns the buffered output oldest-first.
func (t *tail) lines() []string {
	if t.count == 0 {
		return nil
	}
	out := make([]string, 0, t.count)
	start := t.next - t.count
	if start < 0 {
		start += len(t.buf)
	}
	for i := 0; i < t.count; i++ {
		out = append(out, t.buf[(start+i)%len(t.buf)])
	}
	return out
}
