package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/meetscribe/meetscribe/internal/types"
)

// DriveClient mirrors finished runs to Google Drive under a dated
// folder tree. Optional: the worker treats upload failures as
// non-fatal after its retry budget.
type DriveClient struct {
	service    *drive.Service
	folderName string
	folderID   string
}

func NewDriveClient(credentialsFile, tokenFile, folderName string) (*DriveClient, error) {
	ctx := context.Background()

	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	config, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	client, err := getClient(config, tokenFile)
	if err != nil {
		return nil, err
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create Drive service: %w", err)
	}

	dc := &DriveClient{service: srv, folderName: folderName}
	if err := dc.ensureFolder(); err != nil {
		return nil, err
	}
	return dc, nil
}

// getClient builds an authenticated HTTP client from a cached token.
// Unlike an interactive tool, a server cannot prompt for an auth code,
// so a missing token file is an error with setup instructions.
func getClient(config *oauth2.Config, tokenFile string) (*http.Client, error) {
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
		return nil, fmt.Errorf("no cached oauth token at %s; authorize at %s and save the token first", tokenFile, authURL)
	}
	return config.Client(context.Background(), tok), nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// ensureFolder finds or creates the configured root folder.
func (dc *DriveClient) ensureFolder() error {
	query := fmt.Sprintf("name='%s' and mimeType='application/vnd.google-apps.folder' and trashed=false",
		dc.folderName)

	r, err := dc.service.Files.List().Q(query).Spaces("drive").Fields("files(id, name)").Do()
	if err != nil {
		return fmt.Errorf("search for folder: %w", err)
	}
	if len(r.Files) > 0 {
		dc.folderID = r.Files[0].Id
		return nil
	}

	folder := &drive.File{
		Name:     dc.folderName,
		MimeType: "application/vnd.google-apps.folder",
	}
	file, err := dc.service.Files.Create(folder).Fields("id").Do()
	if err != nil {
		return fmt.Errorf("create folder: %w", err)
	}
	dc.folderID = file.Id
	return nil
}

// Upload pushes the transcript, any minutes/CSV artifacts and a
// metadata JSON into the dated tree. Returns a shareable link to the
// uploaded transcript.
func (dc *DriveClient) Upload(requestName string, outcome *types.Outcome) (string, error) {
	now := time.Now()
	folderID, err := dc.ensureDateFolder(now)
	if err != nil {
		return "", err
	}

	timestamp := now.Format("20060102_150405")
	baseFilename := fmt.Sprintf("%s_%s", timestamp, SanitizeFilename(requestName))

	created, err := dc.createFile(baseFilename+".txt", "text/plain", folderID,
		strings.NewReader(outcome.FormattedText))
	if err != nil {
		return "", fmt.Errorf("upload transcript: %w", err)
	}

	if outcome.MinutesFile != "" {
		if err := dc.uploadArtifact(outcome.MinutesFile, baseFilename+"_minutes.md", "text/markdown", folderID); err != nil {
			return "", fmt.Errorf("upload minutes: %w", err)
		}
	}
	if outcome.CSVFile != "" {
		if err := dc.uploadArtifact(outcome.CSVFile, baseFilename+".csv", "text/csv", folderID); err != nil {
			return "", fmt.Errorf("upload csv: %w", err)
		}
	}

	metaJSON, err := json.MarshalIndent(outcomeMetadata(requestName, "", outcome), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	if _, err := dc.createFile(baseFilename+"_meta.json", "application/json", folderID,
		bytes.NewReader(metaJSON)); err != nil {
		return "", fmt.Errorf("upload metadata: %w", err)
	}

	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", created.Id), nil
}

func (dc *DriveClient) uploadArtifact(localPath, name, mimeType, folderID string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(localPath), err)
	}
	defer f.Close()
	_, err = dc.createFile(name, mimeType, folderID, f)
	return err
}

func (dc *DriveClient) createFile(name, mimeType, folderID string, content io.Reader) (*drive.File, error) {
	file := &drive.File{
		Name:    name,
		Parents: []string{folderID},
	}
	return dc.service.Files.Create(file).
		Media(content, googleapi.ContentType(mimeType)).
		Fields("id").Do()
}

// ensureDateFolder creates nested year/month/day folders.
func (dc *DriveClient) ensureDateFolder(t time.Time) (string, error) {
	yearID, err := dc.findOrCreateFolder(fmt.Sprintf("%d", t.Year()), dc.folderID)
	if err != nil {
		return "", err
	}
	monthID, err := dc.findOrCreateFolder(fmt.Sprintf("%02d", t.Month()), yearID)
	if err != nil {
		return "", err
	}
	return dc.findOrCreateFolder(fmt.Sprintf("%02d", t.Day()), monthID)
}

func (dc *DriveClient) findOrCreateFolder(name, parentID string) (string, error) {
	query := fmt.Sprintf("name='%s' and '%s' in parents and mimeType='application/vnd.google-apps.folder' and trashed=false",
		name, parentID)

	r, err := dc.service.Files.List().Q(query).Spaces("drive").Fields("files(id)").Do()
	if err != nil {
		return "", err
	}
	if len(r.Files) > 0 {
		return r.Files[0].Id, nil
	}

	folder := &drive.File{
		Name:     name,
		MimeType: "application/vnd.google-apps.folder",
		Parents:  []string{parentID},
	}
	file, err := dc.service.Files.Create(folder).Fields("id").Do()
	if err != nil {
		return "", err
	}
	return file.Id, nil
}
