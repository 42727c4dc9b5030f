package graph

// BufferID uniquely identifies a declared circular buffer within a Program.
type BufferID uint32

// Buffer is a circular buffer node backing `delwrite`/`delread` (§4.4). Its
// write head advances exactly once per sample across all reads and writes
// performed against it in a single block (§5).
//
// delread(buf, 0) immediately following a delwrite(buf, v) that it has a
// data dependency on is guaranteed to observe v; absent such a dependency
// the value observed is implementation-defined (§9 open question).
type Buffer struct {
	ID       BufferID
	Name     string
	Stage    StageID
	Capacity uint
	Element  Shape

	// CapacitySource is set instead of a resolved Capacity when the
	// declared capacity expression was not a literal; the validator
	// rejects it once rate inference shows it is not C-rate (§4.6, §8
	// scenario 6).
	CapacitySource *Endpoint
}
