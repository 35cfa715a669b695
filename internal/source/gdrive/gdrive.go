package gdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/rsakamoto/mediaimport/internal/domain"
	"github.com/rsakamoto/mediaimport/internal/source"
)

const (
	// MimeTypeFolder is the MIME type for Google Drive folders
	MimeTypeFolder = "application/vnd.google-apps.folder"
	// PageSize is the number of files to fetch per listing request
	PageSize = 100

	listFields = "nextPageToken, files(id, name, mimeType, fileExtension, size, md5Checksum)"
)

var (
	folderURLPattern = regexp.MustCompile(`drive\.google\.com/drive/folders/([^?/#]+)`)
	fileURLPattern   = regexp.MustCompile(`drive\.google\.com/drive/file/`)
)

// ParseFolderURL extracts the folder ID from a Drive sharing URL of the form
// https://drive.google.com/drive/folders/{id}?params (query ignored).
// A /drive/file/ URL is rejected as pointing at a single file.
func ParseFolderURL(url string) (string, error) {
	if m := folderURLPattern.FindStringSubmatch(url); m != nil {
		return m[1], nil
	}
	if fileURLPattern.MatchString(url) {
		return "", domain.ErrIsAFile
	}
	return "", domain.ErrMalformedURL
}

// Root implements source.Root for a shared Google Drive folder.
type Root struct {
	service *drive.Service
	id      string
	name    string
}

// NewRoot parses a folder sharing URL and verifies the folder exists.
func NewRoot(ctx context.Context, service *drive.Service, url string) (*Root, error) {
	if service == nil {
		return nil, domain.ErrMissingCredentials
	}

	id, err := ParseFolderURL(url)
	if err != nil {
		return nil, err
	}

	meta, err := service.Files.Get(id).
		Fields("id, name, mimeType").
		SupportsAllDrives(true).
		Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}
	if meta.MimeType != MimeTypeFolder {
		return nil, domain.ErrIsAFile
	}

	return &Root{service: service, id: id, name: meta.Name}, nil
}

// DisplayName returns the remote folder name.
func (r *Root) DisplayName() string {
	return r.name
}

// ListFiles enumerates the folder's media files, paginating until no
// continuation token is returned. Folders are recursed depth-first when
// recursive is set. Entries without a file extension (Google document
// types) are skipped, not treated as errors.
func (r *Root) ListFiles(ctx context.Context, recursive bool) ([]source.File, error) {
	var files []source.File
	if err := r.searchFolder(ctx, &files, r.id, recursive); err != nil {
		return nil, err
	}
	return files, nil
}

func (r *Root) searchFolder(ctx context.Context, files *[]source.File, folderID string, recursive bool) error {
	pageToken := ""
	for {
		call := r.service.Files.List().
			Q(fmt.Sprintf("'%s' in parents and trashed = false", folderID)).
			PageSize(PageSize).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Fields(listFields)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		fileList, err := call.Context(ctx).Do()
		if err != nil {
			return mapError(err)
		}

		for _, f := range fileList.Files {
			if f.MimeType == MimeTypeFolder {
				if recursive {
					if err := r.searchFolder(ctx, files, f.Id, true); err != nil {
						return err
					}
				}
				continue
			}
			if f.FileExtension == "" {
				continue
			}
			ext := strings.ToLower(f.FileExtension)
			if !domain.IsMediaExtension(ext) {
				continue
			}
			*files = append(*files, &File{
				service: r.service,
				id:      f.Id,
				name:    f.Name,
				ext:     ext,
				size:    f.Size,
				md5:     f.Md5Checksum,
			})
		}

		pageToken = fileList.NextPageToken
		if pageToken == "" {
			return nil
		}
	}
}

// File implements source.File for a Drive file. The content identity is
// the md5Checksum the API returned during enumeration, so no extra request
// is needed to compare files.
type File struct {
	service *drive.Service
	id      string
	name    string
	ext     string
	size    int64
	md5     string
}

func (f *File) Name() string      { return f.name }
func (f *File) Extension() string { return f.ext }
func (f *File) Size() int64       { return f.size }

func (f *File) ContentIdentity(ctx context.Context) (string, error) {
	return f.md5, nil
}

// ReadBytes downloads the full file content.
func (f *File) ReadBytes(ctx context.Context) ([]byte, error) {
	resp, err := f.service.Files.Get(f.id).
		SupportsAllDrives(true).
		Context(ctx).Download()
	if err != nil {
		return nil, mapError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRequestFailed, err)
	}
	return data, nil
}

// rateLimitReasons are the googleapi error reasons that indicate a quota
// rejection rather than a plain permission failure.
var rateLimitReasons = map[string]bool{
	"userRateLimitExceeded": true,
	"rateLimitExceeded":     true,
	"dailyLimitExceeded":    true,
}

// mapError converts Google API errors to domain errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 404:
			return domain.ErrRootNotFound
		case apiErr.Code == 403 || apiErr.Code == 429:
			for _, e := range apiErr.Errors {
				if rateLimitReasons[e.Reason] {
					return fmt.Errorf("%w: %s", domain.ErrRateLimited, e.Reason)
				}
			}
			if apiErr.Code == 429 {
				return fmt.Errorf("%w: %s", domain.ErrRateLimited, apiErr.Message)
			}
			return domain.ErrPermissionDenied
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: %d %s", domain.ErrServerError, apiErr.Code, apiErr.Message)
		default:
			return fmt.Errorf("%w: %d %s", domain.ErrRequestFailed, apiErr.Code, apiErr.Message)
		}
	}

	return fmt.Errorf("%w: %v", domain.ErrRequestFailed, err)
}
