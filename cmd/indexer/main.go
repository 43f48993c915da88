package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"college-chatbot-platform/internal/ai"
	"college-chatbot-platform/internal/audit"
	"college-chatbot-platform/internal/config"
	"college-chatbot-platform/internal/corpus"
	"college-chatbot-platform/internal/logger"
	"college-chatbot-platform/internal/vectorindex"
	"college-chatbot-platform/models"
	"college-chatbot-platform/services"
)

// The indexer is the offline ingestion tool: it imports QA corpora
// from CSV or XLSX, long-form documents from .txt and .pdf files, and
// rebuilds the vector indices the runtime serves from.
func main() {
	qaFile := flag.String("qa", "", "CSV or XLSX file with question,answer,domain columns")
	docsDir := flag.String("docs", "", "directory of .txt/.pdf documents to ingest")
	rebuild := flag.Bool("rebuild", false, "rebuild all indices from the stored corpus")
	flag.Parse()

	if *qaFile == "" && *docsDir == "" && !*rebuild {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)
	db := mongoClient.Database(cfg.DBName)
	store := corpus.NewMongoStore(db)

	gemini, err := ai.NewGeminiClient(cfg.GeminiAPIKey, cfg.GenerationModel, cfg.EmbeddingModel)
	if err != nil {
		log.Fatal("Failed to create Gemini client:", err)
	}
	defer gemini.Close()
	gemini.SetUsageSink(ai.NewMongoUsageSink(db))

	trail, err := audit.NewFileTrail(cfg.AuditLogPath)
	if err != nil {
		log.Fatal("Failed to open audit trail:", err)
	}
	defer trail.Close()

	indices := vectorindex.NewManager(cfg.IndexDir)

	lookup := services.NewLookupService(gemini, indices, trail, services.LookupConfig{
		TopK:          cfg.LookupTopK,
		HighThreshold: cfg.LookupHighThreshold,
		MinThreshold:  cfg.LookupMinThreshold,
		DomainBoost:   cfg.DomainBoost,
	}, cfg.DataDir)

	rag := services.NewRAGService(gemini, gemini, indices, nil, trail, services.RAGConfig{
		TopK:               cfg.RAGTopK,
		RetrievalThreshold: cfg.RAGRetrievalThreshold,
		MinConfidence:      cfg.RAGMinConfidence,
	}, cfg.DataDir)

	chunker, err := services.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		log.Fatal("Invalid chunking config:", err)
	}

	touchedQA := false
	touchedDocs := false

	if *qaFile != "" {
		n, err := importQA(ctx, store, *qaFile)
		if err != nil {
			log.Fatal("QA import failed:", err)
		}
		logger.Info("QA corpus imported", "file", *qaFile, "entries", n)
		touchedQA = true
	}

	if *docsDir != "" {
		n, err := importDocuments(ctx, store, *docsDir)
		if err != nil {
			log.Fatal("Document import failed:", err)
		}
		logger.Info("Documents imported", "dir", *docsDir, "documents", n)
		touchedDocs = true
	}

	if *rebuild || touchedQA {
		for _, domain := range models.AllCategories {
			entries, err := store.ListByDomain(ctx, domain)
			if err != nil {
				log.Fatal("Failed to list QA entries:", err)
			}
			if len(entries) == 0 {
				continue
			}
			if err := lookup.Rebuild(ctx, domain, entries); err != nil {
				log.Fatalf("Failed to rebuild %s index: %v", domain.DomainKey(), err)
			}
		}
	}

	if *rebuild || touchedDocs {
		docs, err := store.ListDocuments(ctx)
		if err != nil {
			log.Fatal("Failed to list documents:", err)
		}
		if len(docs) > 0 {
			if err := rag.Rebuild(ctx, docs, chunker); err != nil {
				log.Fatal("Failed to rebuild document index:", err)
			}
		}
	}

	logger.Info("Indexing complete")
}

// importQA reads question,answer,domain rows from a CSV or XLSX file.
// A header row is skipped when its first cell reads "question".
func importQA(ctx context.Context, store corpus.QAStore, path string) (int, error) {
	var rows [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		rows, err = readCSV(path)
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		return 0, fmt.Errorf("unsupported QA file type: %s", path)
	}
	if err != nil {
		return 0, err
	}

	count := 0
	for i, row := range rows {
		if len(row) < 3 {
			continue
		}
		question := strings.TrimSpace(row[0])
		answer := strings.TrimSpace(row[1])
		domain := strings.TrimSpace(row[2])

		if i == 0 && strings.EqualFold(question, "question") {
			continue
		}
		if question == "" || answer == "" {
			continue
		}

		entry := models.QAEntry{
			Question: question,
			Answer:   answer,
			Domain:   models.NormalizeCategory(domain),
			Source:   filepath.Base(path),
		}
		if err := store.Insert(ctx, entry); err != nil {
			// Duplicates are expected on re-import.
			logger.Debug("Skipping QA entry", "question", question, "error", err)
			continue
		}
		count++
	}

	return count, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	return f.GetRows(sheets[0])
}

// importDocuments walks a directory and ingests every .txt and .pdf
// file as a long-form document. Files whose content hash matches the
// ingestion record are skipped, so re-running over the same directory
// imports nothing; a changed file replaces its stored document.
func importDocuments(ctx context.Context, store corpus.DocumentStore, dir string) (int, error) {
	count := 0

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		var content, docType string
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt":
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			content = string(data)
			docType = "text"
		case ".pdf":
			text, err := extractPDFText(path)
			if err != nil {
				logger.Warn("Skipping unreadable PDF", "file", path, "error", err)
				return nil
			}
			content = text
			docType = "pdf"
		default:
			return nil
		}

		content = strings.TrimSpace(content)
		if content == "" {
			return nil
		}

		source := filepath.Base(path)
		sum := sha256.Sum256([]byte(content))
		contentHash := hex.EncodeToString(sum[:])

		seen, err := store.HasIngested(ctx, source, contentHash)
		if err != nil {
			return err
		}
		if seen {
			logger.Debug("Skipping unchanged document", "file", source)
			return nil
		}

		doc := models.Document{
			Source:      source,
			Content:     content,
			ContentHash: contentHash,
			DocType:     docType,
		}
		if err := store.InsertDocument(ctx, doc); err != nil {
			return err
		}
		if err := store.MarkIngested(ctx, source, contentHash); err != nil {
			return err
		}
		count++
		return nil
	})

	return count, err
}

func extractPDFText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("Failed to extract PDF page", "file", path, "page", i, "error", err)
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}

	if textBuilder.Len() == 0 {
		return "", fmt.Errorf("no text extracted from %s", path)
	}
	return textBuilder.String(), nil
}
