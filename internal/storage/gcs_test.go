package storage

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestGCSGateway(t *testing.T) *GCSGateway {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	keyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})

	client, err := gcs.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return NewGCSGatewayFromClient(client, "cloud-doc-bucket", ServiceAccount{
		ClientEmail: "relay@project.iam.gserviceaccount.com",
		PrivateKey:  string(keyPEM),
	})
}

func TestGCSGateway_SignedURL_Preview(t *testing.T) {
	gw := newTestGCSGateway(t)

	signed, err := gw.SignedURL(context.Background(), "alice_at_example_dot_com/report.pdf", SignOptions{
		Method:             http.MethodGet,
		TTL:                15 * time.Minute,
		ContentDisposition: PreviewDisposition("report.pdf"),
		ContentType:        ContentType("report.pdf"),
	})
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	require.Contains(t, u.Path, "cloud-doc-bucket")
	require.Contains(t, u.Path, "alice_at_example_dot_com/report.pdf")

	q := u.Query()
	require.Equal(t, "GOOG4-RSA-SHA256", q.Get("X-Goog-Algorithm"))
	require.Equal(t, "inline; filename=report.pdf", q.Get("response-content-disposition"))
	require.Equal(t, "application/pdf", q.Get("response-content-type"))
	require.NotEmpty(t, q.Get("X-Goog-Signature"))

	expires, err := strconv.Atoi(q.Get("X-Goog-Expires"))
	require.NoError(t, err)
	require.InDelta(t, 900, expires, 2)
}

func TestGCSGateway_SignedURL_Plain(t *testing.T) {
	gw := newTestGCSGateway(t)

	signed, err := gw.SignedURL(context.Background(), "bob_at_example_dot_com/a.txt", GetURL(1440*time.Minute))
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	q := u.Query()
	require.Empty(t, q.Get("response-content-disposition"))
	require.Empty(t, q.Get("response-content-type"))

	expires, err := strconv.Atoi(q.Get("X-Goog-Expires"))
	require.NoError(t, err)
	require.InDelta(t, 86400, expires, 2)
}

func TestNewGCSGateway_InvalidServiceAccount(t *testing.T) {
	_, err := NewGCSGateway(context.Background(), "bucket", []byte(`{"type":"service_account"}`))
	require.Error(t, err)

	_, err = NewGCSGateway(context.Background(), "bucket", []byte(`not json`))
	require.Error(t, err)
}

const gcsObjectsPath = "/storage/v1/b/cloud-doc-bucket/o"

// fakeGCS serves the JSON API calls the gateway makes against
// cloud-doc-bucket.
type fakeGCS struct {
	mu       sync.Mutex
	objects  map[string][]byte
	pageSize int
	lists    int
}

func newFakeGCS(t *testing.T) (*fakeGCS, *GCSGateway) {
	t.Helper()
	f := &fakeGCS{objects: map[string][]byte{}, pageSize: 1000}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client, err := gcs.NewClient(context.Background(),
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return f, NewGCSGatewayFromClient(client, "cloud-doc-bucket", ServiceAccount{})
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/upload"+gcsObjectsPath:
		f.upload(w, r)
	case r.Method == http.MethodGet && r.URL.Path == gcsObjectsPath:
		f.list(w, r)
	case strings.HasPrefix(r.URL.Path, gcsObjectsPath+"/"):
		name := strings.TrimPrefix(r.URL.Path, gcsObjectsPath+"/")
		if _, ok := f.objects[name]; !ok {
			writeGCSError(w, http.StatusNotFound, "No such object: cloud-doc-bucket/"+name)
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeGCSJSON(w, f.object(name))
		case http.MethodDelete:
			delete(f.objects, name)
			w.WriteHeader(http.StatusNoContent)
		default:
			writeGCSError(w, http.StatusMethodNotAllowed, "unsupported")
		}
	default:
		writeGCSError(w, http.StatusNotFound, "unknown path "+r.URL.Path)
	}
}

func (f *fakeGCS) object(name string) map[string]any {
	return map[string]any{
		"kind":    "storage#object",
		"bucket":  "cloud-doc-bucket",
		"name":    name,
		"size":    strconv.Itoa(len(f.objects[name])),
		"updated": "2025-05-21T14:03:11.000Z",
	}
}

func (f *fakeGCS) list(w http.ResponseWriter, r *http.Request) {
	f.lists++
	prefix := r.URL.Query().Get("prefix")

	var names []string
	for name := range f.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	start, _ := strconv.Atoi(r.URL.Query().Get("pageToken"))
	end := min(start+f.pageSize, len(names))

	items := []map[string]any{}
	for _, name := range names[start:end] {
		items = append(items, f.object(name))
	}
	resp := map[string]any{"kind": "storage#objects", "items": items}
	if end < len(names) {
		resp["nextPageToken"] = strconv.Itoa(end)
	}
	writeGCSJSON(w, resp)
}

// upload accepts the single request multipart upload used for small objects.
func (f *fakeGCS) upload(w http.ResponseWriter, r *http.Request) {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		writeGCSError(w, http.StatusBadRequest, err.Error())
		return
	}

	reader := multipart.NewReader(r.Body, params["boundary"])
	var meta struct {
		Name string `json:"name"`
	}
	metaPart, err := reader.NextPart()
	if err == nil {
		err = json.NewDecoder(metaPart).Decode(&meta)
	}
	if err != nil {
		writeGCSError(w, http.StatusBadRequest, "bad metadata")
		return
	}
	mediaPart, err := reader.NextPart()
	if err != nil {
		writeGCSError(w, http.StatusBadRequest, "missing media")
		return
	}
	data, err := io.ReadAll(mediaPart)
	if err != nil {
		writeGCSError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = meta.Name
	}
	f.objects[name] = data
	writeGCSJSON(w, f.object(name))
}

func writeGCSJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeGCSError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": status, "message": message},
	})
}

func TestGCSGateway_Objects(t *testing.T) {
	fake, gw := newFakeGCS(t)
	ctx := context.Background()

	exists, err := gw.Exists(ctx, "alice_at_example_dot_com/a.txt")
	require.NoError(t, err)
	require.False(t, exists)

	// a reader without Seek must still be uploaded in full
	body := struct{ io.Reader }{strings.NewReader("hello world")}
	require.NoError(t, gw.Upload(ctx, "alice_at_example_dot_com/a.txt", body))
	require.Equal(t, "hello world", string(fake.objects["alice_at_example_dot_com/a.txt"]))

	exists, err = gw.Exists(ctx, "alice_at_example_dot_com/a.txt")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, gw.Delete(ctx, "alice_at_example_dot_com/a.txt"))
	require.ErrorIs(t, gw.Delete(ctx, "alice_at_example_dot_com/a.txt"), ErrNotFound)
}

func TestGCSGateway_List_AllPages(t *testing.T) {
	fake, gw := newFakeGCS(t)
	fake.pageSize = 2
	fake.objects["alice_at_example_dot_com/a.txt"] = []byte("a")
	fake.objects["alice_at_example_dot_com/b.txt"] = []byte("bb")
	fake.objects["alice_at_example_dot_com/c.txt"] = []byte("ccc")
	fake.objects["bob_at_example_dot_com/x.txt"] = []byte("x")

	objects, err := gw.List(context.Background(), "alice_at_example_dot_com/")
	require.NoError(t, err)
	require.Equal(t, 2, fake.lists)

	require.Len(t, objects, 3)
	require.Equal(t, "alice_at_example_dot_com/a.txt", objects[0].Name)
	require.Equal(t, "alice_at_example_dot_com/c.txt", objects[2].Name)
	require.EqualValues(t, 3, objects[2].Size)
	require.Equal(t, time.Date(2025, 5, 21, 14, 3, 11, 0, time.UTC), objects[2].Updated.UTC())

	empty, err := gw.List(context.Background(), "carol_at_example_dot_com/")
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}
