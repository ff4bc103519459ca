package posematch

import (
	"fmt"
	"strings"
)

// Part identifies a body landmark.  Values follow the COCO keypoint order
// output by pose models, so a Part can be used as the keypoint index of a
// model output tensor.
type Part int

const (
	Nose Part = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle

	// PartCount is the number of canonical body parts
	PartCount = 17
)

var partNames = [PartCount]string{
	"nose",
	"leftEye",
	"rightEye",
	"leftEar",
	"rightEar",
	"leftShoulder",
	"rightShoulder",
	"leftElbow",
	"rightElbow",
	"leftWrist",
	"rightWrist",
	"leftHip",
	"rightHip",
	"leftKnee",
	"rightKnee",
	"leftAnkle",
	"rightAnkle",
}

// String returns the camelCase label of the part, eg: leftShoulder
func (p Part) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Part(%d)", int(p))
	}

	return partNames[p]
}

// Valid reports whether p is one of the canonical body parts
func (p Part) Valid() bool {
	return p >= 0 && p < PartCount
}

// Parts returns all canonical body parts in model output order
func Parts() []Part {
	parts := make([]Part, PartCount)

	for i := range parts {
		parts[i] = Part(i)
	}

	return parts
}

// ParsePart returns the Part for the given label.  Matching ignores case and
// surrounding whitespace so labels files written as "Left Shoulder" or
// "left_shoulder" are also accepted.
func ParsePart(label string) (Part, error) {

	norm := normaliseLabel(label)

	for i, name := range partNames {
		if normaliseLabel(name) == norm {
			return Part(i), nil
		}
	}

	return 0, fmt.Errorf("unknown body part label %q", label)
}

func normaliseLabel(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

// MarshalText implements encoding.TextMarshaler
func (p Part) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid body part %d", int(p))
	}

	return []byte(partNames[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Part) UnmarshalText(text []byte) error {

	part, err := ParsePart(string(text))

	if err != nil {
		return err
	}

	*p = part
	return nil
}
