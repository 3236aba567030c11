package modulation

// AttackSeconds is the rise time of the gate envelope.
const AttackSeconds = 0.010

// Output is the continuous modulation value for one audio frame.
type Output struct {
	Pitch  float64 // semitones
	Filter float64 // 0..1
	Gate   float64 // envelope level 0..1
}

// Follower produces an Output every frame between triggers. Pitch and filter
// either jump to the last trigger's values (hold) or glide toward them.
type Follower struct {
	attack int
	glide  bool
	coef   float64

	target Frame
	pitch  float64
	filter float64

	pos       int
	gateLen   int
	gateStart float64
	level     float64
}

// NewFollower returns a hold-mode follower.
func NewFollower(sampleRate int) *Follower {
	return &Follower{
		attack: max(1, int(AttackSeconds*float64(sampleRate))),
		coef:   GlideCoefficient(0),
		pos:    -1,
		filter: 0.5,
		target: Frame{FilterCoefficient: 0.5},
	}
}

// SetGlide switches to glide mode with the given SMOOTH amount.
func (f *Follower) SetGlide(smooth float64) {
	f.glide = true
	f.coef = GlideCoefficient(smooth)
}

// SetHold switches to hold mode.
func (f *Follower) SetHold() {
	f.glide = false
}

// Trigger starts a new gate and retargets pitch and filter.
func (f *Follower) Trigger(fr Frame) {
	f.target = fr
	if !f.glide {
		f.pitch = fr.PitchSemitones
		f.filter = fr.FilterCoefficient
	}
	f.pos = 0
	f.gateLen = fr.GateSamples
	f.gateStart = f.level
}

// Release closes the gate immediately.
func (f *Follower) Release() {
	f.pos = -1
	f.level = 0
}

// Next advances one frame.
func (f *Follower) Next() Output {
	if f.glide {
		f.pitch += (f.target.PitchSemitones - f.pitch) * f.coef
		f.filter += (f.target.FilterCoefficient - f.filter) * f.coef
	}

	switch {
	case f.pos < 0:
		f.level = 0
	case f.pos < f.gateLen:
		rise := min(1, float64(f.pos+1)/float64(f.attack))
		f.level = f.gateStart + (1-f.gateStart)*rise
		f.pos++
	default:
		f.level = 0
		f.pos = -1
	}

	return Output{Pitch: f.pitch, Filter: f.filter, Gate: f.level}
}
