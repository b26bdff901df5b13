package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lexify-app/lexify-server/internal/common"
	sc "github.com/lexify-app/lexify-server/internal/server/config"
	"github.com/lexify-app/lexify-server/internal/server/models"
	"github.com/lexify-app/lexify-server/internal/server/repositories/repomanager"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

const exportURLValidity = 15 * time.Minute

// exportDocument is the JSON layout of one history export file.
type exportDocument struct {
	UserID     string        `json:"userId"`
	ExportedAt time.Time     `json:"exportedAt"`
	Words      []exportSense `json:"words"`
}

type exportSense struct {
	Word       string            `json:"word"`
	Meaning    string            `json:"meaning"`
	SavedAt    time.Time         `json:"savedAt"`
	Encounters []exportEncounter `json:"encounters"`
}

type exportEncounter struct {
	SourceURL string    `json:"sourceUrl"`
	Position  string    `json:"position,omitempty"`
	Context   string    `json:"context,omitempty"`
	SeenAt    time.Time `json:"seenAt"`
}

// ExportService writes a user's full history to object storage and hands
// back a time-limited download link.
type ExportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
}

func NewExportService(db *sql.DB, m repomanager.RepositoryManager, cfg *sc.Config) *ExportService {
	return &ExportService{
		db:          db,
		repomanager: m,
		config:      cfg,
	}
}

func exportStorageKey(userID string) string {
	d := time.Now()
	return fmt.Sprintf("exports/%s/%d/%d/%d/%v.json", userID, d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *ExportService) getS3Client() (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3AccessKey,
			s.config.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
	}), nil
}

func buildExportDocument(userID string, entries []*models.HistoryEntry) *exportDocument {
	doc := &exportDocument{
		UserID:     userID,
		ExportedAt: time.Now().UTC(),
		Words:      make([]exportSense, 0, len(entries)),
	}

	for _, entry := range entries {
		es := exportSense{
			Word:       entry.Sense.Word,
			Meaning:    entry.Sense.Meaning,
			SavedAt:    entry.Sense.CreatedAt,
			Encounters: make([]exportEncounter, 0, len(entry.Encounters)),
		}
		for _, enc := range entry.Encounters {
			es.Encounters = append(es.Encounters, exportEncounter{
				SourceURL: enc.SourceURL,
				Position:  enc.Position,
				Context:   enc.Context,
				SeenAt:    enc.CreatedAt,
			})
		}
		doc.Words = append(doc.Words, es)
	}

	return doc
}

// Export marshals the user's history, uploads it, and returns a presigned
// GET URL valid for fifteen minutes.
func (s *ExportService) Export(ctx context.Context, userID string) (string, error) {
	entries, err := s.repomanager.Senses(s.db).History(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrPersistence, err)
	}

	body, err := json.Marshal(buildExportDocument(userID, entries))
	if err != nil {
		return "", fmt.Errorf("marshaling export: %w", err)
	}

	client, err := s.getS3Client()
	if err != nil {
		return "", fmt.Errorf("creating s3 client: %w", err)
	}

	bucket := s.config.S3Bucket
	key := exportStorageKey(userID)

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("uploading export: %w", err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(exportURLValidity))
	if err != nil {
		return "", fmt.Errorf("presigning export url: %w", err)
	}

	return req.URL, nil
}
