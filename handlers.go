package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"medex/models"
	"medex/pkg/document"
	"medex/pkg/structuring"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// server carries the request-handling dependencies. The structuring client is
// constructed once in main and passed in; nothing here relies on package-level
// service state.
type server struct {
	db          *gorm.DB
	structurer  *structuring.Client
	decode      document.Config
	jwtSecret   []byte
	requireAuth bool
}

func setupRoutes(r *gin.Engine, s *server) {
	r.GET("/", s.healthHandler)
	r.POST("/register", s.registerHandler)
	r.POST("/login", s.loginHandler)
	api := r.Group("")
	if s.requireAuth {
		api.Use(s.jwtAuthMiddleware())
	}
	api.POST("/extract-text", s.extractTextHandler)
	api.POST("/add-patient", s.addPatientHandler)
	api.GET("/get-patient/:id", s.getPatientHandler)
	api.GET("/get-all-patients", s.getAllPatientsHandler)
}

func (s *server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "API running"})
}

func (s *server) jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid Authorization header"})
			c.Abort()
			return
		}
		tokenString := authHeader[7:]
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrInvalidKeyType
			}
			return s.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid claims"})
			c.Abort()
			return
		}
		username, _ := claims["username"].(string)
		c.Set("username", username)
		c.Next()
	}
}

func (s *server) registerHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.RegisterUser(req.Username, req.Password); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user registered successfully"})
}

func (s *server) loginHandler(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := s.Authenticate(req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": user.Username,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	})
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "login successful", "token": tokenString})
}

// extractTextHandler runs the full pipeline for an uploaded document. When
// patient_id and file_category are supplied the result is also persisted as a
// Report; otherwise the extraction is returned without side effects.
func (s *server) extractTextHandler(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no file provided"})
		return
	}
	if !document.AllowedFile(fh.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file"})
		return
	}

	// Resolve the patient before any processing so a bad reference costs
	// nothing and leaves nothing behind.
	persist := false
	var patient models.Patient
	fileCategory := c.PostForm("file_category")
	if patientID := c.PostForm("patient_id"); patientID != "" {
		if fileCategory == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file_category is required"})
			return
		}
		p, err := s.findPatient(patientID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
				return
			}
			log.Printf("patient lookup failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "patient lookup failed"})
			return
		}
		patient = p
		persist = true
	}

	// Per-request work dir; the upload, rasterized pages and preprocessed
	// images all live here and are removed together on every exit path.
	workDir, err := os.MkdirTemp("", "medex-*")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to allocate work dir"})
		return
	}
	defer os.RemoveAll(workDir)

	upload := filepath.Join(workDir, "upload-"+uuid.New().String()+strings.ToLower(filepath.Ext(fh.Filename)))
	if err := c.SaveUploadedFile(fh, upload); err != nil {
		log.Printf("save upload failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save upload"})
		return
	}

	rawText, structured, err := s.runPipeline(c.Request.Context(), upload, workDir)
	if err != nil {
		log.Printf("extract %s: %v", fh.Filename, err)
		if errors.Is(err, structuring.ErrCompletion) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "structuring service unavailable"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"raw_text": rawText, "structured_data": structured}
	if persist {
		report := models.Report{
			PatientID:      patient.ID,
			FileCategory:   fileCategory,
			FileName:       fh.Filename,
			RawText:        rawText,
			StructuredData: structured,
		}
		if err := s.db.Create(&report).Error; err != nil {
			log.Printf("save report failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save report"})
			return
		}
		resp["report_id"] = report.ID
	}
	c.JSON(http.StatusOK, resp)
}

// runPipeline is the decode -> OCR -> structure chain shared by the HTTP
// handler and the inbox importer. workDir holds the intermediate page images.
func (s *server) runPipeline(ctx context.Context, path, workDir string) (string, string, error) {
	pages, err := document.DecodePages(ctx, s.decode, path, workDir)
	if err != nil {
		return "", "", err
	}
	rawText, err := document.ExtractText(ctx, pages)
	if err != nil {
		return "", "", err
	}
	structured, err := s.structurer.StructureReport(ctx, rawText)
	if err != nil {
		return "", "", err
	}
	return rawText, structured, nil
}

func (s *server) findPatient(id string) (models.Patient, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		// an unparseable identifier cannot resolve to a record
		return models.Patient{}, gorm.ErrRecordNotFound
	}
	var patient models.Patient
	if err := s.db.First(&patient, uint(n)).Error; err != nil {
		return models.Patient{}, err
	}
	return patient, nil
}

func (s *server) addPatientHandler(c *gin.Context) {
	var payload map[string]any
	if err := c.ShouldBindJSON(&payload); err != nil || len(payload) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no patient data provided"})
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no patient data provided"})
		return
	}
	patient := models.Patient{Fields: datatypes.JSON(raw)}
	if err := s.db.Create(&patient).Error; err != nil {
		log.Printf("create patient failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add patient"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":    "patient added successfully",
		"patient_id": strconv.FormatUint(uint64(patient.ID), 10),
	})
}

func (s *server) getPatientHandler(c *gin.Context) {
	patient, err := s.findPatient(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
			return
		}
		log.Printf("patient lookup failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "patient lookup failed"})
		return
	}
	c.JSON(http.StatusOK, renderPatient(patient))
}

func (s *server) getAllPatientsHandler(c *gin.Context) {
	var patients []models.Patient
	if err := s.db.Order("id").Find(&patients).Error; err != nil {
		log.Printf("list patients failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	out := make([]map[string]any, 0, len(patients))
	for _, p := range patients {
		out = append(out, renderPatient(p))
	}
	c.JSON(http.StatusOK, out)
}

// renderPatient merges the stored schemaless fields with the identifier,
// rendered as a string.
func renderPatient(p models.Patient) map[string]any {
	m := map[string]any{}
	if len(p.Fields) > 0 {
		_ = json.Unmarshal(p.Fields, &m)
	}
	m["id"] = strconv.FormatUint(uint64(p.ID), 10)
	return m
}
