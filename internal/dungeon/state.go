package dungeon

import (
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/gravewood/oubliette/internal/errors"
)

// SpellBufferSize is the capacity of each spell buffer in bytes.
const SpellBufferSize = 128

// TreasureSize is the number of treasure positions in the final room.
const TreasureSize = 4

// Field offsets into the shared block. Scalars are naturally aligned so the
// atomic operations below are valid on every supported architecture.
const (
	offRunning       = 0  // uint32
	offMasterPID     = 4  // int32
	offEnemyHealth   = 8  // int32
	offAttack        = 12 // int32
	offTrapLocked    = 16 // uint32
	offTrapDirection = 20 // uint32
	offGuess         = 24 // uint64 (float64 bits)
	offEncodedLen    = 32 // uint32
	offEncodedData   = 36
	offDecodedLen    = offEncodedData + SpellBufferSize // 164, uint32
	offDecodedData   = offDecodedLen + 4                // 168
	offTreasure      = offDecodedData + SpellBufferSize // 296, uint32, packed bytes
	offSpoils        = offTreasure + 4                  // 300, uint32, packed bytes

	// Size is the total byte size of the shared block.
	Size = offSpoils + 4
)

// Direction is the trap feedback field. It forms a small cycle: None at the
// start of an episode, then GuessSubmitted alternating with TooLow/TooHigh,
// ending in Unlocked. Any value outside TooLow/TooHigh/Unlocked tells the
// solver to treat the next signal as a fresh episode.
type Direction uint32

const (
	// DirectionNone is the zero value; no feedback has been issued.
	DirectionNone Direction = iota
	// DirectionTooLow means the last guess was below the hidden threshold.
	DirectionTooLow
	// DirectionTooHigh means the last guess was above the hidden threshold.
	DirectionTooHigh
	// DirectionGuessSubmitted means a new guess awaits the orchestrator.
	DirectionGuessSubmitted
	// DirectionUnlocked means the trap has been disarmed.
	DirectionUnlocked
)

// String returns a human-readable direction name.
func (d Direction) String() string {
	switch d {
	case DirectionNone:
		return "none"
	case DirectionTooLow:
		return "too-low"
	case DirectionTooHigh:
		return "too-high"
	case DirectionGuessSubmitted:
		return "guess-submitted"
	case DirectionUnlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// State is a handle on the shared dungeon block. A State is either mapped
// from the named shared region (Create/Attach) or backed by ordinary memory
// (NewLocal, for in-process use and tests). All accessors are safe for
// concurrent use across goroutines and, for mapped states, across processes.
type State struct {
	mem  []byte
	path string // empty for local states
}

// NewLocal returns a State backed by ordinary process-private memory.
// It has the same layout and accessors as a mapped state.
func NewLocal() *State {
	return &State{mem: make([]byte, Size)}
}

func (s *State) u32(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&s.mem[off]))
}

func (s *State) i32(off int) *int32 {
	return (*int32)(unsafe.Pointer(&s.mem[off]))
}

func (s *State) u64(off int) *uint64 {
	return (*uint64)(unsafe.Pointer(&s.mem[off]))
}

// Running reports whether the dungeon is live.
func (s *State) Running() bool {
	return atomic.LoadUint32(s.u32(offRunning)) != 0
}

// SetRunning flips the liveness flag. True is written once at creation,
// false exactly once at shutdown.
func (s *State) SetRunning(running bool) {
	var v uint32
	if running {
		v = 1
	}
	atomic.StoreUint32(s.u32(offRunning), v)
}

// MasterPID returns the orchestrator's process ID.
func (s *State) MasterPID() int {
	return int(atomic.LoadInt32(s.i32(offMasterPID)))
}

// SetMasterPID records the orchestrator's process ID.
func (s *State) SetMasterPID(pid int) {
	atomic.StoreInt32(s.i32(offMasterPID), int32(pid))
}

// EnemyHealth returns the posted enemy health.
func (s *State) EnemyHealth() int32 {
	return atomic.LoadInt32(s.i32(offEnemyHealth))
}

// SetEnemyHealth posts the enemy health for the attack challenge.
func (s *State) SetEnemyHealth(h int32) {
	atomic.StoreInt32(s.i32(offEnemyHealth), h)
}

// AttackValue returns the worker's answer to the attack challenge.
func (s *State) AttackValue() int32 {
	return atomic.LoadInt32(s.i32(offAttack))
}

// SetAttackValue records the worker's attack.
func (s *State) SetAttackValue(v int32) {
	atomic.StoreInt32(s.i32(offAttack), v)
}

// TrapLocked reports whether a trap episode is in progress.
func (s *State) TrapLocked() bool {
	return atomic.LoadUint32(s.u32(offTrapLocked)) != 0
}

// SetTrapLocked arms or disarms the trap.
func (s *State) SetTrapLocked(locked bool) {
	var v uint32
	if locked {
		v = 1
	}
	atomic.StoreUint32(s.u32(offTrapLocked), v)
}

// TrapDirection returns the current trap feedback.
func (s *State) TrapDirection() Direction {
	return Direction(atomic.LoadUint32(s.u32(offTrapDirection)))
}

// SetTrapDirection publishes trap feedback.
func (s *State) SetTrapDirection(d Direction) {
	atomic.StoreUint32(s.u32(offTrapDirection), uint32(d))
}

// Guess returns the current probe value of the numeric search.
func (s *State) Guess() float64 {
	return math.Float64frombits(atomic.LoadUint64(s.u64(offGuess)))
}

// SetGuess stores a probe value without announcing it.
func (s *State) SetGuess(v float64) {
	atomic.StoreUint64(s.u64(offGuess), math.Float64bits(v))
}

// SubmitGuess stores a new probe value and then announces it by setting the
// direction to DirectionGuessSubmitted. The guess is written first so the
// orchestrator never reads a stale probe for a fresh announcement.
func (s *State) SubmitGuess(v float64) {
	s.SetGuess(v)
	s.SetTrapDirection(DirectionGuessSubmitted)
}

// setSpell publishes a payload into a length-prefixed buffer: bytes first,
// then the length word. Readers load the length before copying.
func (s *State) setSpell(lenOff, dataOff int, payload []byte) error {
	if len(payload) > SpellBufferSize {
		return errors.NewProtocolError("write spell", "payload exceeds buffer", errors.ErrInvalidInput)
	}
	copy(s.mem[dataOff:dataOff+len(payload)], payload)
	atomic.StoreUint32(s.u32(lenOff), uint32(len(payload)))
	return nil
}

// spell reads a length-prefixed buffer into a fresh slice.
func (s *State) spell(lenOff, dataOff int) []byte {
	n := int(atomic.LoadUint32(s.u32(lenOff)))
	if n > SpellBufferSize {
		n = SpellBufferSize
	}
	out := make([]byte, n)
	copy(out, s.mem[dataOff:dataOff+n])
	return out
}

// SetEncodedSpell publishes cipher text; its first byte is the shift key.
func (s *State) SetEncodedSpell(payload []byte) error {
	return s.setSpell(offEncodedLen, offEncodedData, payload)
}

// EncodedSpell returns a copy of the current cipher text.
func (s *State) EncodedSpell() []byte {
	return s.spell(offEncodedLen, offEncodedData)
}

// SetDecodedSpell publishes the decoding worker's answer.
func (s *State) SetDecodedSpell(payload []byte) error {
	return s.setSpell(offDecodedLen, offDecodedData, payload)
}

// DecodedSpell returns a copy of the current decoded answer.
func (s *State) DecodedSpell() []byte {
	return s.spell(offDecodedLen, offDecodedData)
}

// setPackedByte updates byte i of a four-byte packed word with CAS,
// leaving the other bytes untouched.
func (s *State) setPackedByte(off, i int, b byte) {
	p := s.u32(off)
	shift := uint(8 * i)
	for {
		old := atomic.LoadUint32(p)
		next := old&^(0xff<<shift) | uint32(b)<<shift
		if atomic.CompareAndSwapUint32(p, old, next) {
			return
		}
	}
}

// packedByte reads byte i of a four-byte packed word.
func (s *State) packedByte(off, i int) byte {
	return byte(atomic.LoadUint32(s.u32(off)) >> uint(8*i))
}

// RevealTreasure publishes treasure byte i for collection.
func (s *State) RevealTreasure(i int, b byte) {
	s.setPackedByte(offTreasure, i, b)
}

// Treasure returns treasure byte i; zero means not yet revealed.
func (s *State) Treasure(i int) byte {
	return s.packedByte(offTreasure, i)
}

// ClearTreasure resets all treasure positions.
func (s *State) ClearTreasure() {
	atomic.StoreUint32(s.u32(offTreasure), 0)
}

// SetSpoil records collected spoils byte i.
func (s *State) SetSpoil(i int, b byte) {
	s.setPackedByte(offSpoils, i, b)
}

// Spoil returns spoils byte i; zero means not yet collected.
func (s *State) Spoil(i int) byte {
	return s.packedByte(offSpoils, i)
}

// ClearSpoils resets the spoils before a collection episode.
func (s *State) ClearSpoils() {
	atomic.StoreUint32(s.u32(offSpoils), 0)
}

// SpoilsComplete reports whether the final spoils position has been filled.
// This is the completion signal the lever holders poll for.
func (s *State) SpoilsComplete() bool {
	return s.Spoil(TreasureSize-1) != 0
}

// Spoils returns the collected bytes up to the first empty position.
func (s *State) Spoils() []byte {
	out := make([]byte, 0, TreasureSize)
	for i := 0; i < TreasureSize; i++ {
		b := s.Spoil(i)
		if b == 0 {
			break
		}
		out = append(out, b)
	}
	return out
}

// Path returns the backing file path, or empty for a local state.
func (s *State) Path() string {
	return s.path
}
