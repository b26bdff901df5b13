package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	sc "github.com/lexify-app/lexify-server/internal/server/config"
	"github.com/lexify-app/lexify-server/internal/server/models"
)

func newExportService(t *testing.T, senses *fakeSensesRepo) (*ExportService, *sql.DB) {
	t.Helper()
	db, _ := newSQLMockDB(t)
	t.Cleanup(func() { db.Close() })
	cfg := &sc.Config{
		S3Region:       "us-east-1",
		S3AccessKey:    "minioadmin",
		S3SecretKey:    "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "lexify-exports",
	}
	rm := &fakeRepoManager{senses: senses, encounters: newFakeEncountersRepo(), users: newFakeUsersRepo()}
	return NewExportService(db, rm, cfg), db
}

func stubAWSSeams(t *testing.T) {
	t.Helper()
	origLoad, origNewS3, origNewPre := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient
	origPut, origGet := putObject, presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
		putObject = origPut
		presignGetObject = origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client { return &s3.Client{} }
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }
}

func TestExport_UploadsHistoryAndReturnsURL(t *testing.T) {
	senses := newFakeSensesRepo()
	senses.historyOut = []*models.HistoryEntry{
		{
			Sense: models.Sense{
				ID: "s1", Word: "bank", Meaning: "financial institution",
				CreatedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			},
			Encounters: []models.Encounter{
				{SourceURL: "https://a", Position: "1:00", Context: "ctx"},
			},
		},
	}
	svc, _ := newExportService(t, senses)
	stubAWSSeams(t)

	var uploadedKey string
	var uploadedBody []byte
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		uploadedKey = *in.Key
		b, err := io.ReadAll(in.Body)
		if err != nil {
			t.Fatalf("reading upload body: %v", err)
		}
		uploadedBody = b
		return &s3.PutObjectOutput{}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return &v4.PresignedHTTPRequest{URL: "https://signed/" + *in.Key}, nil
	}

	url, err := svc.Export(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Export error: %v", err)
	}
	if !strings.HasPrefix(url, "https://signed/exports/u1/") {
		t.Fatalf("unexpected url: %q", url)
	}
	if !strings.HasPrefix(uploadedKey, "exports/u1/") || !strings.HasSuffix(uploadedKey, ".json") {
		t.Fatalf("unexpected storage key: %q", uploadedKey)
	}

	var doc exportDocument
	if err := json.Unmarshal(uploadedBody, &doc); err != nil {
		t.Fatalf("uploaded body is not valid JSON: %v", err)
	}
	if doc.UserID != "u1" || len(doc.Words) != 1 || doc.Words[0].Word != "bank" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if len(doc.Words[0].Encounters) != 1 || doc.Words[0].Encounters[0].SourceURL != "https://a" {
		t.Fatalf("unexpected encounters: %+v", doc.Words[0].Encounters)
	}
}

func TestExport_UploadError(t *testing.T) {
	svc, _ := newExportService(t, newFakeSensesRepo())
	stubAWSSeams(t)

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, errors.New("put-fail")
	}

	_, err := svc.Export(context.Background(), "u1")
	if err == nil || !strings.Contains(err.Error(), "put-fail") {
		t.Fatalf("want put-fail, got %v", err)
	}
}

func TestExport_PresignError(t *testing.T) {
	svc, _ := newExportService(t, newFakeSensesRepo())
	stubAWSSeams(t)

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return &s3.PutObjectOutput{}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-get-fail")
	}

	_, err := svc.Export(context.Background(), "u1")
	if err == nil || !strings.Contains(err.Error(), "presign-get-fail") {
		t.Fatalf("want presign-get-fail, got %v", err)
	}
}
