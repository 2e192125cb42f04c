package systems

// TargetKind selects what an audio binding writes to.
type TargetKind uint8

const (
	TargetEmitter TargetKind = iota
	TargetField
)

// EmitterParam is the closed set of emitter parameters an audio binding can
// drive. The setter is resolved when the binding is added, not per frame.
type EmitterParam uint8

const (
	EmitterParamRate EmitterParam = iota
	EmitterParamSpeed
	EmitterParamSize
	EmitterParamLifetime
	EmitterParamSpread
)

// FieldParam is the closed set of bindable force-field parameters.
type FieldParam uint8

const (
	FieldParamStrength FieldParam = iota
	FieldParamFrequency
	FieldParamFalloffEnd
)

// MapMode shapes the normalized input before range mapping.
type MapMode uint8

const (
	MapLinear MapMode = iota
	MapExponential
	MapLogarithmic
)

// Binding maps one named audio feature onto one parameter of an emitter or
// force field, through EMA smoothing, clamped normalization, and range
// mapping. Smoothed is runtime state and is snapshotted by the frame cache.
type Binding struct {
	Feature string `yaml:"feature"`

	Target   TargetKind `yaml:"target"`
	TargetID string     `yaml:"target_id"`

	EmitterParam EmitterParam `yaml:"emitter_param"`
	FieldParam   FieldParam   `yaml:"field_param"`

	Smoothing float32 `yaml:"smoothing"` // 0 = none, towards 1 = heavy
	Min       float32 `yaml:"min"`
	Max       float32 `yaml:"max"`
	OutMin    float32 `yaml:"out_min"`
	OutMax    float32 `yaml:"out_max"`
	Mode      MapMode `yaml:"mode"`

	Smoothed float32 `yaml:"-"`
}

// Smooth folds a new feature value into the binding's EMA.
func (b *Binding) Smooth(value float32) float32 {
	alpha := 1 - clamp01(b.Smoothing)
	b.Smoothed = alpha*value + (1-alpha)*b.Smoothed
	return b.Smoothed
}

// MapValue normalizes the smoothed value into [0, 1] against [Min, Max]
// (always clamped), then maps it into [OutMin, OutMax].
func (b *Binding) MapValue(smoothed float32) float32 {
	span := b.Max - b.Min
	var t float32
	if span > 1e-8 {
		t = clamp01((smoothed - b.Min) / span)
	}
	switch b.Mode {
	case MapExponential:
		t = t * t
	case MapLogarithmic:
		t = sqrtf(t)
	}
	return b.OutMin + t*(b.OutMax-b.OutMin)
}

// SetEmitterParam writes a bound value onto an emitter parameter.
func SetEmitterParam(e *EmitterConfig, p EmitterParam, v float32) {
	switch p {
	case EmitterParamRate:
		e.Rate = v
	case EmitterParamSpeed:
		e.Speed.Base = v
	case EmitterParamSize:
		e.Size.Base = v
	case EmitterParamLifetime:
		e.Lifetime.Base = v
	case EmitterParamSpread:
		e.Spread = v
	}
}

// SetFieldParam writes a bound value onto a force-field parameter.
func SetFieldParam(f *FieldConfig, p FieldParam, v float32) {
	switch p {
	case FieldParamStrength:
		f.Strength = v
	case FieldParamFrequency:
		f.Frequency = v
	case FieldParamFalloffEnd:
		f.FalloffEnd = v
	}
}
