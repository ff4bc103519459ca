package main

import (
	"errors"
	"image"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/swdee/go-posematch"
	"github.com/swdee/go-posematch/calibration"
	"github.com/swdee/go-posematch/metrics"
	"github.com/swdee/go-posematch/session"
	"github.com/swdee/go-posematch/source"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// streamInterval is how often the MJPEG stream checks for a new overlay
const streamInterval = 33 * time.Millisecond

// latestFrame gives the JPEG of the most recently flushed overlay and a
// sequence number that changes with each flush
type latestFrame interface {
	Latest() ([]byte, uint64)
}

// canvasFrames JPEG encodes canvas snapshots for streaming
type canvasFrames struct {
	canvas interface{ Snapshot() *image.RGBA }

	mu   sync.Mutex
	last *image.RGBA
	buf  []byte
	seq  uint64
}

func (c *canvasFrames) Latest() ([]byte, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.canvas.Snapshot()

	if snap == nil || snap == c.last {
		return c.buf, c.seq
	}

	mat, err := gocv.ImageToMatRGBA(snap)

	if err != nil {
		return c.buf, c.seq
	}

	defer mat.Close()

	enc, err := gocv.IMEncode(gocv.JPEGFileExt, mat)

	if err != nil {
		return c.buf, c.seq
	}

	defer enc.Close()

	c.buf = append(c.buf[:0:0], enc.GetBytes()...)
	c.last = snap
	c.seq++

	return c.buf, c.seq
}

// server is the HTTP control API
type server struct {
	sess    *session.Session
	camera  posematch.FrameSource
	calib   *calibration.Client
	stream  latestFrame
	metrics *metrics.Collector
	log     *zap.Logger

	// calibID is the calibration service session the outline is stored under
	mu      sync.Mutex
	calibID string
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type imageBody struct {
	Image string `json:"image"`
}

func (s *server) routes() http.Handler {

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/api/reference", s.captureReference)
	r.DELETE("/api/reference", s.clearReference)
	r.GET("/api/reference", s.getReference)
	r.GET("/api/score", s.getScore)
	r.GET("/api/state", s.getState)
	r.POST("/api/calibrate/outline", s.calibrateOutline)
	r.POST("/api/calibrate", s.calibrate)
	r.GET("/stream", s.mjpeg)
	r.GET("/ws/scores", s.scores)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	return r
}

// readImage takes the image from a multipart "file" field or a JSON body
// holding a base64 image
func readImage(c *gin.Context) ([]byte, error) {

	if fh, err := c.FormFile("file"); err == nil {
		f, err := fh.Open()

		if err != nil {
			return nil, err
		}

		defer f.Close()

		return io.ReadAll(f)
	}

	var body imageBody

	if err := c.ShouldBindJSON(&body); err != nil {
		return nil, err
	}

	return posematch.DecodeImageBase64(body.Image)
}

func (s *server) captureReference(c *gin.Context) {

	data, err := readImage(c)

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pose, err := s.sess.Capture(c.Request.Context(), data)

	if err != nil {
		status := http.StatusInternalServerError

		if errors.Is(err, posematch.ErrNoPose) {
			status = http.StatusUnprocessableEntity
		}

		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": pose})
}

func (s *server) clearReference(c *gin.Context) {
	s.sess.ClearReference()
	c.JSON(http.StatusOK, gin.H{"data": "reference cleared"})
}

func (s *server) getReference(c *gin.Context) {

	pose, ok := s.sess.Reference()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no reference captured"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": pose})
}

func (s *server) getScore(c *gin.Context) {

	resp := gin.H{}

	if u, ok := s.sess.LastUpdate(); ok {
		resp["latest"] = u
	}

	if u, ok := s.sess.LastScore(); ok {
		resp["last_valid"] = u
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *server) getState(c *gin.Context) {

	_, hasRef := s.sess.Reference()

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"state":     s.sess.State(),
		"reference": hasRef,
		"interval":  s.sess.Interval().String(),
	}})
}

// calibrateOutline registers a reference photo with the calibration service
// and returns its edge outline PNG
func (s *server) calibrateOutline(c *gin.Context) {

	if s.calib == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "calibration is disabled"})
		return
	}

	data, err := readImage(c)

	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := calibration.NewSessionID()

	png, err := s.calib.Outline(c.Request.Context(), id, data)

	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.calibID = id
	s.mu.Unlock()

	c.Data(http.StatusOK, "image/png", png)
}

// calibrate grabs one camera frame and asks the calibration service how to
// move the camera to match the outline
func (s *server) calibrate(c *gin.Context) {

	if s.calib == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "calibration is disabled"})
		return
	}

	s.mu.Lock()
	id := s.calibID
	s.mu.Unlock()

	if id == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "no outline registered"})
		return
	}

	frame, err := s.camera.Next(c.Request.Context())

	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	defer frame.Release()

	mf, ok := frame.(*source.Frame)

	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "frame cannot be encoded"})
		return
	}

	jpeg, err := source.EncodeJPEG(mf, 90)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	guide, err := s.calib.Align(c.Request.Context(), id, jpeg)

	if err != nil {
		status := http.StatusBadGateway

		if errors.Is(err, calibration.ErrUnknownSession) {
			status = http.StatusConflict
		}

		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"aligned":   guide.Aligned,
		"direction": guide.Direction,
		"hint":      guide.Hint(),
	}})
}

// mjpeg streams the overlay as multipart JPEG frames
func (s *server) mjpeg(c *gin.Context) {

	s.log.Info("stream client connected")

	w := c.Writer
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	var lastSeq uint64

	for {
		select {
		case <-c.Request.Context().Done():
			s.log.Info("stream client disconnected")
			return

		case <-ticker.C:
			buf, seq := s.stream.Latest()

			if seq == lastSeq || len(buf) == 0 {
				continue
			}

			lastSeq = seq

			w.Write([]byte("--frame\r\n"))
			w.Write([]byte("Content-Type: image/jpeg\r\n\r\n"))
			w.Write(buf)
			w.Write([]byte("\r\n"))
			w.Flush()
		}
	}
}

// scores pushes every session update to a websocket client as JSON
func (s *server) scores(c *gin.Context) {

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)

	if err != nil {
		return
	}

	defer conn.Close()

	updates, stop := s.sess.Subscribe(8)
	defer stop()

	// drain client messages so close frames are processed
	gone := make(chan struct{})

	go func() {
		defer close(gone)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return

		case u, ok := <-updates:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}

			conn.SetWriteDeadline(time.Now().Add(time.Second))

			if err := conn.WriteJSON(u); err != nil {
				s.log.Debug("score client write failed", zap.Error(err))
				return
			}
		}
	}
}
