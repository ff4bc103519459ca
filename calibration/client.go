// Package calibration is a client for the background alignment service used
// to line the camera up with the scene of a reference photo before scoring
package calibration

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// ErrUnknownSession is returned when the service has no outline registered
// for the session ID
var ErrUnknownSession = errors.New("calibration session not found")

// DeadBand is the pixel offset on each axis within which the camera is
// considered aligned
const DeadBand = 10

// imageRequest is the body of both service calls
type imageRequest struct {
	ID    string `json:"id"`
	Image string `json:"image"`
}

type alignResponse struct {
	IsAligned bool   `json:"isAligned"`
	Direction []int  `json:"direction"`
	Error     string `json:"error"`
}

// Guide is the alignment result for one camera frame
type Guide struct {
	Aligned bool `json:"aligned"`
	// Direction is the x and y pixel offset of the scene from the reference
	Direction [2]int `json:"direction"`
}

// Hint returns a readable instruction for moving the camera, or an empty
// string once aligned
func (g Guide) Hint() string {

	x, y := g.Direction[0], g.Direction[1]
	var moves []string

	switch {
	case x < -DeadBand:
		moves = append(moves, "right")
	case x > DeadBand:
		moves = append(moves, "left")
	}

	switch {
	case y < -DeadBand:
		moves = append(moves, "down")
	case y > DeadBand:
		moves = append(moves, "up")
	}

	if len(moves) == 0 {
		return ""
	}

	return "move " + strings.Join(moves, " ")
}

// Client talks to the alignment service
type Client struct {
	http *resty.Client
}

// New returns a client for the service at baseURL
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// NewSessionID returns a fresh ID to register an outline under
func NewSessionID() string {
	return uuid.NewString()
}

// Outline registers the reference photo under the session ID and returns
// the PNG edge overlay the service drew from it
func (c *Client) Outline(ctx context.Context, id string, jpeg []byte) ([]byte, error) {

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(imageRequest{ID: id, Image: base64.StdEncoding.EncodeToString(jpeg)}).
		Post("/image-outline")

	if err != nil {
		return nil, fmt.Errorf("outline request failed: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("outline request returned %s: %s", resp.Status(), resp.String())
	}

	return resp.Body(), nil
}

// Align compares a live camera frame against the registered outline
func (c *Client) Align(ctx context.Context, id string, jpeg []byte) (Guide, error) {

	var body alignResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(imageRequest{ID: id, Image: base64.StdEncoding.EncodeToString(jpeg)}).
		SetResult(&body).
		Post("/align-background")

	if err != nil {
		return Guide{}, fmt.Errorf("align request failed: %w", err)
	}

	if resp.IsError() {
		return Guide{}, fmt.Errorf("align request returned %s: %s", resp.Status(), resp.String())
	}

	if body.Error != "" {
		return Guide{}, fmt.Errorf("%w: %s", ErrUnknownSession, id)
	}

	g := Guide{Aligned: body.IsAligned}

	if len(body.Direction) >= 2 {
		g.Direction = [2]int{body.Direction[0], body.Direction[1]}
	}

	return g, nil
}
