package dropbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadArg_MarshalJSON(t *testing.T) {
	t.Parallel()

	modified := time.Date(2023, 12, 31, 23, 59, 59, 999, time.FixedZone("EST", -5*3600))

	tests := []struct {
		name string
		arg  UploadArg
		want string
	}{
		{
			name: "defaults to add",
			arg:  UploadArg{Path: "/a"},
			want: `{"path":"/a","mode":{".tag":"add"},"autorename":false,"mute":false,"strict_conflict":false}`,
		},
		{
			name: "update with rev and client_modified in UTC",
			arg:  UploadArg{Path: "/a", Mode: WriteModeUpdateRev("0a1b"), ClientModified: &modified, Mute: true},
			want: `{"path":"/a","mode":{".tag":"update","update":"0a1b"},"autorename":false,"client_modified":"2024-01-01T04:59:59Z","mute":true,"strict_conflict":false}`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			got, err := json.Marshal(test.arg)
			require.NoError(t, err)
			assert.JSONEq(t, test.want, string(got))
		})
	}
}

func TestListFolderArg_MarshalJSON(t *testing.T) {
	t.Parallel()

	got, err := json.Marshal(ListFolderArg{Path: "/x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"/x","recursive":false,"include_deleted":false,"include_mounted_folders":true,"include_non_downloadable_files":true}`, string(got))

	got, err = json.Marshal(ListFolderArg{Path: "/x", ExcludeMountedFolders: true, ExcludeNonDownloadableFiles: true, Limit: 10})
	require.NoError(t, err)
	assert.JSONEq(t, `{"path":"/x","recursive":false,"include_deleted":false,"include_mounted_folders":false,"include_non_downloadable_files":false,"limit":10}`, string(got))
}

func TestDecodeTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "object", in: `{".tag":"not_found"}`, want: "not_found"},
		{name: "bare string", in: ` "reset"`, want: "reset"},
		{name: "garbage", in: `[1]`, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			got, err := decodeTag([]byte(test.in))
			if test.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestUploadError_BareTag(t *testing.T) {
	t.Parallel()

	var u UploadError
	require.NoError(t, json.Unmarshal([]byte(`"payload_too_large"`), &u))
	assert.Equal(t, UploadErrorPayloadTooLarge, u.Tag)
	assert.Nil(t, u.Path)
}

func TestMetadata_MarshalJSONCarriesTag(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		md   Metadata
		tag  string
	}{
		{"file", &FileMetadata{MetadataBase: MetadataBase{Name: "a"}, ID: "id:1"}, TagFile},
		{"folder", &FolderMetadata{MetadataBase: MetadataBase{Name: "b"}, ID: "id:2"}, TagFolder},
		{"deleted", &DeletedMetadata{MetadataBase: MetadataBase{Name: "c"}}, TagDeleted},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			b, err := json.Marshal(test.md)
			require.NoError(t, err)

			var probe struct {
				Tag  string `json:".tag"`
				Name string `json:"name"`
			}
			require.NoError(t, json.Unmarshal(b, &probe))
			assert.Equal(t, test.tag, probe.Tag)
			assert.Equal(t, test.md.Base().Name, probe.Name)

			back, err := decodeMetadata(b)
			require.NoError(t, err)
			assert.Equal(t, test.md, back)
		})
	}
}

func TestDecodeMetadata_UnknownTag(t *testing.T) {
	t.Parallel()

	_, err := decodeMetadata([]byte(`{".tag":"symlink","name":"x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown metadata tag "symlink"`)
}

func TestDownloadArg_RangeHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		arg  DownloadArg
		want string
	}{
		{"whole file", DownloadArg{Path: "/a"}, ""},
		{"open ended", DownloadArg{Path: "/a", Start: 100}, "bytes=100-"},
		{"window", DownloadArg{Path: "/a", Start: 10, Length: 5}, "bytes=10-14"},
		{"prefix", DownloadArg{Path: "/a", Length: 1}, "bytes=0-0"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, test.want, test.arg.rangeHeader())
		})
	}
}

func TestSpaceAllocation_Quota(t *testing.T) {
	t.Parallel()

	var individual SpaceAllocation
	require.NoError(t, json.Unmarshal([]byte(`{".tag":"individual","allocated":2048}`), &individual))
	assert.Equal(t, uint64(2048), individual.Quota())

	var other SpaceAllocation
	require.NoError(t, json.Unmarshal([]byte(`{".tag":"other"}`), &other))
	assert.Zero(t, other.Quota())
}

func TestUnions_BareStringVoidMembers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		into any
		want any
	}{
		{"tagged", `"too_many_requests"`, &Tagged{}, &Tagged{Tag: RateLimitTooManyRequests}},
		{"lookup", `"not_found"`, &LookupError{}, &LookupError{Tag: LookupErrorNotFound}},
		{"write conflict", `"file_ancestor"`, &WriteConflictError{}, &WriteConflictError{Tag: WriteConflictFileAncestor}},
		{"write", `"insufficient_space"`, &WriteError{}, &WriteError{Tag: WriteErrorInsufficientSpace}},
		{"account type", `"basic"`, &AccountType{}, &AccountType{Tag: "basic"}},
		{"media info", `"pending"`, &MediaInfo{}, &MediaInfo{Tag: MediaInfoPending}},
		{"write mode", `"overwrite"`, &WriteMode{}, &WriteMode{Tag: WriteModeOverwrite}},
		{"access", `"no_permission"`, &AccessError{}, &AccessError{Tag: "no_permission"}},
		{"continue reset", `"reset"`, &ListFolderContinueError{}, &ListFolderContinueError{Tag: ListFolderContinueErrorReset}},
		{
			"nested lookup",
			`{".tag":"path","path":"not_found"}`,
			&GetMetadataError{},
			&GetMetadataError{Tag: "path", Path: &LookupError{Tag: LookupErrorNotFound}},
		},
		{
			"nested conflict",
			`{".tag":"path","path":{".tag":"conflict","conflict":"folder"}}`,
			&CreateFolderError{},
			&CreateFolderError{Tag: "path", Path: &WriteError{Tag: WriteErrorConflict, Conflict: &WriteConflictError{Tag: WriteConflictFolder}}},
		},
		{
			"delete lookup",
			`{".tag":"path_lookup","path_lookup":"not_found"}`,
			&DeleteError{},
			&DeleteError{Tag: "path_lookup", PathLookup: &LookupError{Tag: LookupErrorNotFound}},
		},
		{
			"object form still carries fields",
			`{".tag":"malformed_path","malformed_path":"bad"}`,
			&LookupError{},
			&LookupError{Tag: LookupErrorMalformedPath, MalformedPath: ptr("bad")},
		},
		{
			"team root info",
			`{".tag":"team","root_namespace_id":"1","home_namespace_id":"2","home_path":"/Ada"}`,
			&RootInfo{},
			&RootInfo{Tag: RootInfoTeam, RootNamespaceID: "1", HomeNamespaceID: "2", HomePath: "/Ada"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			require.NoError(t, json.Unmarshal([]byte(test.in), test.into))
			assert.Equal(t, test.want, test.into)
		})
	}
}

func TestFileMetadata_PendingMediaInfo(t *testing.T) {
	t.Parallel()

	md, err := decodeMetadata([]byte(`{".tag":"file","name":"p.jpg","id":"id:p","media_info":"pending"}`))
	require.NoError(t, err)

	f, ok := md.(*FileMetadata)
	require.True(t, ok)
	require.NotNil(t, f.MediaInfo)
	assert.Equal(t, MediaInfoPending, f.MediaInfo.Tag)
	assert.Nil(t, f.MediaInfo.Metadata)
}

func ptr[T any](v T) *T { return &v }
