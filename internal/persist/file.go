package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cliffjones/polli/internal/talkmap"
)

// #region naming
// FileName returns the file holding a depth's talk map: talk.txt for depth 0,
// talk_2.txt for depth 1, and so on.
func FileName(depth int) string {
	if depth < 1 {
		return "talk.txt"
	}
	return fmt.Sprintf("talk_%d.txt", depth+1)
}

// #endregion naming

// #region file-provider
// FileProvider keeps each depth in its own JSON file under Dir. The files are
// plain JSON objects of key to list of responses.
type FileProvider struct {
	Dir string
}

// NewFileProvider returns a provider rooted at dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{Dir: dir}
}

// Path returns the file path for a depth.
func (p *FileProvider) Path(depth int) string {
	return filepath.Join(p.Dir, FileName(depth))
}

// Load reads one depth.
func (p *FileProvider) Load(_ context.Context, depth int) LoadResult {
	data, err := os.ReadFile(p.Path(depth))
	if errors.Is(err, fs.ErrNotExist) {
		return empty(depth, Missing, err)
	}
	if err != nil {
		return empty(depth, Unreadable, fmt.Errorf("read %s: %w", p.Path(depth), err))
	}

	m, err := decodeMap(data)
	if err != nil {
		return empty(depth, Malformed, fmt.Errorf("decode %s: %w", p.Path(depth), err))
	}
	return loaded(depth, m)
}

// Save writes one depth through a temp file renamed into place.
func (p *FileProvider) Save(_ context.Context, depth int, m talkmap.Map) error {
	data, err := encodeMap(m)
	if err != nil {
		return fmt.Errorf("encode depth %d: %w", depth, err)
	}
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	tmp, err := os.CreateTemp(p.Dir, ".talk-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.Path(depth)); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// #endregion file-provider

// #region codec
var marshalOpts = protojson.MarshalOptions{Multiline: true, Indent: "  "}

// encodeMap renders m as a JSON object. protojson rejects invalid UTF-8, so
// stray bytes are replaced before encoding.
func encodeMap(m talkmap.Map) ([]byte, error) {
	st := &structpb.Struct{Fields: make(map[string]*structpb.Value, len(m))}
	for k, list := range m {
		values := make([]*structpb.Value, len(list))
		for i, s := range list {
			values[i] = structpb.NewStringValue(strings.ToValidUTF8(s, "\uFFFD"))
		}
		st.Fields[strings.ToValidUTF8(k, "\uFFFD")] = structpb.NewListValue(&structpb.ListValue{Values: values})
	}
	return marshalOpts.Marshal(st)
}

func decodeMap(data []byte) (talkmap.Map, error) {
	var st structpb.Struct
	if err := protojson.Unmarshal(data, &st); err != nil {
		return nil, err
	}

	raw := make(map[string][]string, len(st.Fields))
	for k, v := range st.Fields {
		list := v.GetListValue()
		if list == nil {
			return nil, fmt.Errorf("key %q: expected a list", k)
		}
		entries := make([]string, 0, len(list.Values))
		for i, item := range list.Values {
			s, ok := item.GetKind().(*structpb.Value_StringValue)
			if !ok {
				return nil, fmt.Errorf("key %q entry %d: expected a string", k, i)
			}
			entries = append(entries, s.StringValue)
		}
		raw[k] = entries
	}
	return fromLists(raw), nil
}

// #endregion codec
