package mega

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rsakamoto/mediaimport/internal/domain"
	"github.com/rsakamoto/mediaimport/internal/source"
)

var folderURLPattern = regexp.MustCompile(`https?://mega\.(?:io|nz|co\.nz)/folder/([0-9A-Za-z_-]+)#([0-9A-Za-z_-]+)`)

// ParseFolderURL extracts the folder handle and the base64 folder key from
// a sharing URL of the form https://mega.nz/folder/{id}#{key}. Links one
// level below a shared folder (more than one /folder/ segment) are not
// addressable through the folder-share API and are rejected as malformed.
func ParseFolderURL(url string) (id, key string, err error) {
	m := folderURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", "", domain.ErrMalformedURL
	}
	if strings.Count(url, "/folder/") > 1 {
		return "", "", domain.ErrMalformedURL
	}
	return m[1], m[2], nil
}

// node is one entry of the folder listing. Names and per-file keys arrive
// encrypted with the shared folder key.
type node struct {
	Handle    string `json:"h"`
	Parent    string `json:"p"`
	Type      int    `json:"t"` // 0: file, 1: folder, 2+: trash etc.
	Attrs     string `json:"a"`
	Key       string `json:"k"`
	Size      int64  `json:"s"`
	Timestamp int64  `json:"ts"`
}

type listResponse struct {
	Nodes []node `json:"f"`
}

type downloadResponse struct {
	URL  string `json:"g"`
	Size int64  `json:"s"`
}

// Root implements source.Root for a shared MEGA folder. The node list is
// fetched once at construction; the API returns the whole subtree in a
// single request, so non-recursive listing is a filter on the parent
// handle.
type Root struct {
	client *Client
	id     string
	key    []uint32
	name   string

	rootHandle string
	files      []*File
}

// NewRoot parses the sharing URL, decodes the folder key and fetches the
// folder's node list.
func NewRoot(ctx context.Context, client *Client, url string) (*Root, error) {
	id, keyStr, err := ParseFolderURL(url)
	if err != nil {
		return nil, err
	}
	key, err := base64ToA32(keyStr)
	if err != nil || len(key) != 4 {
		return nil, fmt.Errorf("%w: invalid folder key", domain.ErrMalformedURL)
	}

	r := &Root{client: client, id: id, key: key, name: id}
	if err := r.load(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Root) load(ctx context.Context) error {
	var resp listResponse
	payload := map[string]any{"a": "f", "c": 1, "ca": 1, "r": 1}
	if err := r.client.request(ctx, r.id, payload, &resp); err != nil {
		return err
	}
	if len(resp.Nodes) == 0 {
		return domain.ErrRootNotFound
	}

	r.rootHandle = resp.Nodes[0].Handle
	r.decryptRootName(resp.Nodes[0])

	for _, n := range resp.Nodes {
		if n.Type != 0 {
			continue
		}
		f, err := r.decryptFileNode(n)
		if err != nil {
			// An undecryptable node would also be unreadable in the
			// official client; skip it rather than failing the run.
			continue
		}
		if f != nil {
			r.files = append(r.files, f)
		}
	}
	return nil
}

// decryptRootName recovers the shared folder's display name. The URL
// fragment key is the root folder's own key, so its attributes decrypt
// directly with it.
func (r *Root) decryptRootName(root node) {
	raw, err := base64URLDecode(root.Attrs)
	if err != nil {
		return
	}
	attrs, err := decryptAttrs(raw, r.key)
	if err == nil && attrs.Name != "" {
		r.name = attrs.Name
	}
}

// decryptFileNode decrypts a file node's key and attributes and applies
// the media allow-list. Returns (nil, nil) for filtered entries.
func (r *Root) decryptFileNode(n node) (*File, error) {
	parts := strings.SplitN(n.Key, ":", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("node %s: malformed key", n.Handle)
	}
	encKey, err := base64ToA32(parts[1])
	if err != nil {
		return nil, err
	}
	fileKey, err := decryptKey(encKey, r.key)
	if err != nil {
		return nil, err
	}
	if len(fileKey) != 8 {
		return nil, fmt.Errorf("node %s: unexpected key length %d", n.Handle, len(fileKey))
	}

	rawAttrs, err := base64URLDecode(n.Attrs)
	if err != nil {
		return nil, err
	}
	attrs, err := decryptAttrs(rawAttrs, xorHalves(fileKey))
	if err != nil {
		return nil, err
	}

	name := attrs.Name
	if !strings.Contains(name, ".") {
		return nil, nil
	}
	ext := domain.Extension(name)
	if !domain.IsMediaExtension(ext) {
		return nil, nil
	}

	return &File{
		root:   r,
		handle: n.Handle,
		parent: n.Parent,
		key:    fileKey,
		name:   name,
		ext:    ext,
		size:   n.Size,
	}, nil
}

// DisplayName returns the decrypted folder name, or the folder handle when
// the name could not be recovered.
func (r *Root) DisplayName() string {
	return r.name
}

// ListFiles returns the materialized file list. Non-recursive mode keeps
// only direct children of the shared folder.
func (r *Root) ListFiles(ctx context.Context, recursive bool) ([]source.File, error) {
	files := make([]source.File, 0, len(r.files))
	for _, f := range r.files {
		if !recursive && f.parent != r.rootHandle {
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

// File implements source.File for an encrypted MEGA file. MEGA exposes no
// content digest, so ContentIdentity is unavailable and identity
// comparisons fall back to size equality.
type File struct {
	root   *Root
	handle string
	parent string
	key    []uint32
	name   string
	ext    string
	size   int64
}

func (f *File) Name() string      { return f.name }
func (f *File) Extension() string { return f.ext }
func (f *File) Size() int64       { return f.size }

func (f *File) ContentIdentity(ctx context.Context) (string, error) {
	return "", nil
}

// ReadBytes requests a temporary download URL, fetches the encrypted
// content and decrypts it.
func (f *File) ReadBytes(ctx context.Context) ([]byte, error) {
	var resp downloadResponse
	payload := map[string]any{"a": "g", "g": 1, "n": f.handle}
	if err := f.root.client.request(ctx, f.root.id, payload, &resp); err != nil {
		return nil, err
	}
	// Nodes occasionally lose their download URL; those files are also
	// inaccessible in the official client and may come back later.
	if resp.URL == "" {
		return nil, fmt.Errorf("%w: file %s not accessible anymore", domain.ErrRequestFailed, f.name)
	}

	encrypted, err := f.root.client.fetch(ctx, resp.URL)
	if err != nil {
		return nil, err
	}
	return decryptContent(encrypted, f.key)
}
