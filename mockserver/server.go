// Package mockserver is a local stand-in for the image service. It implements
// the challenge, verify and generate endpoints with a fixed secret melody and
// a procedurally drawn PNG, so the client can be developed offline.
package mockserver

import (
	"bytes"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"melody-gate/debug"
	"melody-gate/melody"
)

// Categories the generate endpoint accepts
var Categories = []string{"blueprint", "artwork", "tattoo"}

type Server struct {
	secret []melody.Note
	size   int
}

// New creates a server that unlocks on secret. An empty secret uses C4 D4 E4 F4.
func New(secret []melody.Note) *Server {
	if len(secret) == 0 {
		secret = []melody.Note{melody.C4, melody.D4, melody.E4, melody.F4}
	}
	return &Server{secret: secret, size: 256}
}

// ParseMelody reads a secret like "C4 E4 G4 C5" or "C4,E4,G4".
func ParseMelody(s string) []melody.Note {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '-'
	})
	var out []melody.Note
	for _, f := range fields {
		n := melody.Note(strings.ToUpper(f))
		if n.Valid() {
			out = append(out, n)
		}
	}
	return out
}

// Router builds the gin engine
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogging())

	auth := router.Group("/auth")
	{
		auth.GET("/challenge", s.Challenge)
		auth.POST("/verify", s.Verify)
	}
	router.POST("/generate", s.Generate)

	return router
}

func requestLogging() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		debug.Log("server", "%s %s id=%s status=%d",
			c.Request.Method, c.Request.URL.Path, c.GetHeader("X-Request-Id"), c.Writer.Status())
	}
}

// Challenge returns the required melody length
func (s *Server) Challenge(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"melody": len(s.secret)})
}

type verifyRequest struct {
	Attempt []melody.Note `json:"attempt"`
}

// Verify compares the attempt with the secret melody
func (s *Server) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": s.matches(req.Attempt)})
}

func (s *Server) matches(attempt []melody.Note) bool {
	if len(attempt) != len(s.secret) {
		return false
	}
	for i := range attempt {
		if attempt[i] != s.secret[i] {
			return false
		}
	}
	return true
}

type generateRequest struct {
	Type   string `json:"type"`
	Prompt string `json:"prompt"`
}

// Generate draws a PNG seeded by the prompt
func (s *Server) Generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}
	if !knownCategory(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown type"})
		return
	}

	data, err := s.render(req.Type + ":" + req.Prompt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

func knownCategory(t string) bool {
	for _, c := range Categories {
		if c == t {
			return true
		}
	}
	return false
}

func (s *Server) render(seed string) ([]byte, error) {
	h := fnv.New32a()
	h.Write([]byte(seed))
	sum := h.Sum32()
	r0, g0, b0 := uint8(sum), uint8(sum>>8), uint8(sum>>16)

	img := image.NewRGBA(image.Rect(0, 0, s.size, s.size))
	for y := 0; y < s.size; y++ {
		for x := 0; x < s.size; x++ {
			img.Set(x, y, color.RGBA{
				R: r0 + uint8(x),
				G: g0 + uint8(y),
				B: b0 + uint8(x^y),
				A: 0xff,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
