package main

import (
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"medex/models"
	"medex/pkg/document"

	"github.com/fsnotify/fsnotify"
	"gorm.io/gorm"
)

const inboxWorkers = 2

// parseInboxName splits a hot-folder file name of the form
// "<patientID>__<category>__<anything>.<ext>".
func parseInboxName(name string) (uint, string, bool) {
	parts := strings.SplitN(name, "__", 3)
	if len(parts) < 3 {
		return 0, "", false
	}
	n, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil || n == 0 || strings.TrimSpace(parts[1]) == "" {
		return 0, "", false
	}
	return uint(n), parts[1], true
}

// watchInbox ingests documents dropped into dir through the same pipeline as
// the HTTP path. Creates are debounced so partially written files are not
// picked up mid-copy.
func (s *server) watchInbox(dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	log.Printf("Watching inbox %s ...", dir)

	fileCh := make(chan string, 256)
	go func() {
		// simple debounce map of pending files
		pending := map[string]time.Time{}
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					close(fileCh)
					return
				}
				if ev.Op&fsnotify.Create == fsnotify.Create {
					name := filepath.Base(ev.Name)
					if !document.AllowedFile(name) {
						continue
					}
					pending[name] = time.Now()
				}
			case <-ticker.C:
				now := time.Now()
				for name, t := range pending {
					if now.Sub(t) > 300*time.Millisecond { // stable
						fileCh <- name
						delete(pending, name)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					close(fileCh)
					return
				}
				log.Printf("inbox watch error: %v", err)
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < inboxWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for name := range fileCh {
				s.processInboxFile(dir, name)
			}
		}()
	}
	wg.Wait()
	return nil
}

// processInboxFile runs one dropped file through the pipeline and stores the
// report. The source file is removed on success and kept for review on
// failure.
func (s *server) processInboxFile(dir, name string) {
	patientID, category, ok := parseInboxName(name)
	if !ok {
		log.Printf("inbox: skipping %s: name does not encode patient and category", name)
		return
	}
	var patient models.Patient
	if err := s.db.First(&patient, patientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("inbox: skipping %s: patient %d not found", name, patientID)
		} else {
			log.Printf("inbox: patient lookup for %s failed: %v", name, err)
		}
		return
	}

	workDir, err := os.MkdirTemp("", "medex-inbox-*")
	if err != nil {
		log.Printf("inbox: work dir: %v", err)
		return
	}
	defer os.RemoveAll(workDir)

	path := filepath.Join(dir, name)
	rawText, structured, err := s.runPipeline(context.Background(), path, workDir)
	if err != nil {
		log.Printf("inbox: %s: %v", name, err)
		return
	}
	report := models.Report{
		PatientID:      patient.ID,
		FileCategory:   category,
		FileName:       name,
		RawText:        rawText,
		StructuredData: structured,
	}
	if err := s.db.Create(&report).Error; err != nil {
		log.Printf("inbox: save report for %s failed: %v", name, err)
		return
	}
	if err := os.Remove(path); err != nil {
		log.Printf("inbox: remove %s: %v", name, err)
	}
	log.Printf("inbox: imported %s as report %d (patient %d)", name, report.ID, patient.ID)
}
