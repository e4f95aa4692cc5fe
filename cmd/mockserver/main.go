package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"melody-gate/debug"
	"melody-gate/melody"
	"melody-gate/mockserver"
)

// Runs the local stand-in image service.
//
//	MELODY  secret melody, e.g. "C4 E4 G4 C5" (default C4 D4 E4 F4)
//	PORT    listen port (default 8787)
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	debug.EnableWriter(os.Stderr)
	gin.SetMode(gin.ReleaseMode)

	secret := mockserver.ParseMelody(os.Getenv("MELODY"))
	srv := mockserver.New(secret)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8787"
	}

	names := make([]string, 0, len(secret))
	for _, n := range secret {
		names = append(names, string(n))
	}
	if len(names) == 0 {
		names = []string{string(melody.C4), string(melody.D4), string(melody.E4), string(melody.F4)}
	}
	log.Printf("mock image service on :%s, secret melody %v", port, names)
	log.Printf("point the client at it with -api http://localhost:%s", port)

	if err := srv.Router().Run(":" + port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
