package main

import (
	"bufio"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"medex/pkg/document"
	"medex/pkg/structuring"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// maxUploadBytes caps request bodies before they reach the handlers.
const maxUploadBytes = 16 << 20

func main() {
	// Auto-load ./.env if present (no external dependency) before reading vars
	loadDotEnv()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-insecure-secret-change" // development fallback
	}

	structurer, err := structuring.New(structuring.Config{
		Model:       os.Getenv("LLM_MODEL"),
		APIKey:      os.Getenv("OPENAI_API_KEY"),
		BaseURL:     os.Getenv("OPENAI_BASE_URL"),
		Temperature: envFloat("LLM_TEMPERATURE", 1),
	})
	if err != nil {
		log.Fatal("completion client: ", err)
	}

	s := &server{
		db:         initDB(),
		structurer: structurer,
		decode: document.Config{
			Pdftoppm: os.Getenv("PDFTOPPM"),
			DPI:      envInt("OCR_DPI", 300),
		},
		jwtSecret:   []byte(secret),
		requireAuth: envBool("REQUIRE_AUTH"),
	}

	r := gin.Default()
	r.Use(cors.Default())
	r.Use(limitBody(maxUploadBytes))
	r.MaxMultipartMemory = maxUploadBytes

	setupRoutes(r, s)

	if dir := os.Getenv("INBOX_DIR"); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Printf("failed to create inbox dir %s: %v", dir, err)
		} else {
			go func() {
				if err := s.watchInbox(dir); err != nil {
					log.Printf("inbox watcher stopped: %v", err)
				}
			}()
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}

// limitBody rejects oversized request bodies at the transport layer.
func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// loadDotEnv loads key=value pairs from a local .env file into the environment
// without overwriting variables that are already set. Lines starting with # are ignored.
func loadDotEnv() {
	path := ".env"
	if _, err := os.Stat(path); err != nil {
		return // no .env file
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// split on first '='
		if eq := strings.IndexByte(line, '='); eq > 0 {
			key := strings.TrimSpace(line[:eq])
			val := strings.TrimSpace(line[eq+1:])
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
	}
}
