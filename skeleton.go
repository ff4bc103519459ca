package posematch

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// SkeletonMap holds the directed limb edges drawn between body parts.  Each
// key lists the parts a line is drawn to from it.
type SkeletonMap map[Part][]Part

// DefaultSkeleton is the limb layout drawn for the 17 COCO body parts.  It is
// shared read only across sessions and must not be modified.
var DefaultSkeleton = SkeletonMap{
	Nose:          {LeftEye, RightEye},
	LeftEye:       {LeftEar},
	RightEye:      {RightEar},
	LeftShoulder:  {RightShoulder, LeftElbow, LeftHip},
	RightShoulder: {RightElbow, RightHip},
	LeftElbow:     {LeftWrist},
	RightElbow:    {RightWrist},
	LeftHip:       {LeftKnee, RightHip},
	RightHip:      {RightKnee},
	LeftKnee:      {LeftAnkle},
	RightKnee:     {RightAnkle},
}

// Validate checks every part in the map is a canonical body part
func (m SkeletonMap) Validate() error {

	for from, tos := range m {
		if !from.Valid() {
			return fmt.Errorf("skeleton edge from invalid part %d", int(from))
		}

		for _, to := range tos {
			if !to.Valid() {
				return fmt.Errorf("skeleton edge %s -> invalid part %d", from, int(to))
			}
		}
	}

	return nil
}

// Edges returns the number of limb edges in the map
func (m SkeletonMap) Edges() int {
	n := 0

	for _, tos := range m {
		n += len(tos)
	}

	return n
}

// ParseSkeleton decodes a YAML document mapping part labels to the list of
// part labels they connect to, eg:
//
//	nose: [leftEye, rightEye]
//	leftEye: [leftEar]
func ParseSkeleton(data []byte) (SkeletonMap, error) {

	var raw map[string][]string

	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("error decoding skeleton yaml: %w", err)
	}

	m := make(SkeletonMap, len(raw))

	for fromLabel, toLabels := range raw {
		from, err := ParsePart(fromLabel)

		if err != nil {
			return nil, fmt.Errorf("skeleton key: %w", err)
		}

		for _, toLabel := range toLabels {
			to, err := ParsePart(toLabel)

			if err != nil {
				return nil, fmt.Errorf("skeleton edge from %s: %w", from, err)
			}

			m[from] = append(m[from], to)
		}
	}

	return m, nil
}
