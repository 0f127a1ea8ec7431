package dropbox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Primitive wire types.
type (
	Rev         = string
	NamespaceID = string
	AccountID   = string
	SessionID   = string
)

// Tagged is the discriminant every union carries on the wire. It also stands
// for unions whose members are all void.
type Tagged struct {
	Tag string `json:".tag"`
}

func (t *Tagged) UnmarshalJSON(b []byte) error {
	tag, err := decodeTag(b)
	if err != nil {
		return err
	}
	t.Tag = tag
	return nil
}

// decodeTag reads the discriminant of a union. Void members may arrive as the
// bare tag string instead of an object.
func decodeTag(b []byte) (string, error) {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var t struct {
		Tag string `json:".tag"`
	}
	if err := json.Unmarshal(b, &t); err != nil {
		return "", err
	}
	return t.Tag, nil
}

// decodeUnion decodes a union whose member fields sit next to .tag. v must be
// the union under a local type without UnmarshalJSON and tag its Tag field.
// A bare string sets only the tag.
func decodeUnion(b []byte, v any, tag *string) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, tag)
	}
	return json.Unmarshal(b, v)
}

// decodeInline decodes a union member whose struct fields sit next to .tag.
func decodeInline(b []byte, v any) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return nil
	}
	return json.Unmarshal(b, v)
}

// LocalizedText is a message meant for the end user.
type LocalizedText struct {
	Text   string `json:"text"`
	Locale string `json:"locale"`
}

// PathRoot selects the namespace that relative paths resolve against.
type PathRoot struct {
	Tag         string `json:".tag"`
	Root        string `json:"root,omitempty"`
	NamespaceID string `json:"namespace_id,omitempty"`
}

const (
	PathRootHome        = "home"
	PathRootRoot        = "root"
	PathRootNamespaceID = "namespace_id"
)

// RootInfo describes the root namespace of an account.
type RootInfo struct {
	Tag             string `json:".tag"`
	RootNamespaceID string `json:"root_namespace_id"`
	HomeNamespaceID string `json:"home_namespace_id"`
	HomePath        string `json:"home_path,omitempty"`
}

// RootInfo tags.
const (
	RootInfoUser = "user"
	RootInfoTeam = "team"
)

// WriteMode decides what happens when a file already exists at the target path.
type WriteMode struct {
	Tag    string `json:".tag"`
	Update Rev    `json:"update,omitempty"`
}

// WriteMode tags.
const (
	WriteModeAdd       = "add"
	WriteModeOverwrite = "overwrite"
	WriteModeUpdate    = "update"
)

// WriteModeUpdateRev returns an update mode that only succeeds against rev.
func WriteModeUpdateRev(rev Rev) WriteMode {
	return WriteMode{Tag: WriteModeUpdate, Update: rev}
}

// TemplateFilterBase restricts which property templates are returned.
type TemplateFilterBase struct {
	Tag        string   `json:".tag"`
	FilterSome []string `json:"filter_some,omitempty"`
}

// PropertyGroup is a set of custom properties attached to a file.
type PropertyGroup struct {
	TemplateID string          `json:"template_id"`
	Fields     []PropertyField `json:"fields"`
}

// PropertyField is a single name/value property.
type PropertyField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// SharedLink lets list_folder operate on the contents of a shared link.
type SharedLink struct {
	URL      string `json:"url"`
	Password string `json:"password,omitempty"`
}

// Metadata tags.
const (
	TagFile    = "file"
	TagFolder  = "folder"
	TagDeleted = "deleted"
)

// Metadata is implemented by *FileMetadata, *FolderMetadata and *DeletedMetadata.
type Metadata interface {
	Base() *MetadataBase
}

// MetadataBase holds the fields shared by every kind of metadata.
type MetadataBase struct {
	Name                 string `json:"name"`
	PathLower            string `json:"path_lower,omitempty"`
	PathDisplay          string `json:"path_display,omitempty"`
	ParentSharedFolderID string `json:"parent_shared_folder_id,omitempty"`
	PreviewURL           string `json:"preview_url,omitempty"`
}

// Base returns the shared fields.
func (m *MetadataBase) Base() *MetadataBase { return m }

// FileMetadata describes a file.
type FileMetadata struct {
	MetadataBase
	ID                       string            `json:"id"`
	ClientModified           time.Time         `json:"client_modified"`
	ServerModified           time.Time         `json:"server_modified"`
	Rev                      Rev               `json:"rev"`
	Size                     uint64            `json:"size"`
	MediaInfo                *MediaInfo        `json:"media_info,omitempty"`
	SymlinkInfo              *SymlinkInfo      `json:"symlink_info,omitempty"`
	SharingInfo              *FileSharingInfo  `json:"sharing_info,omitempty"`
	IsDownloadable           bool              `json:"is_downloadable"`
	ExportInfo               *ExportInfo       `json:"export_info,omitempty"`
	PropertyGroups           []PropertyGroup   `json:"property_groups,omitempty"`
	HasExplicitSharedMembers *bool             `json:"has_explicit_shared_members,omitempty"`
	ContentHash              string            `json:"content_hash,omitempty"`
	FileLockInfo             *FileLockMetadata `json:"file_lock_info,omitempty"`
}

func (m FileMetadata) MarshalJSON() ([]byte, error) {
	type alias FileMetadata
	return json.Marshal(struct {
		Tag string `json:".tag"`
		alias
	}{TagFile, alias(m)})
}

// FolderMetadata describes a folder.
type FolderMetadata struct {
	MetadataBase
	ID             string             `json:"id"`
	SharedFolderID string             `json:"shared_folder_id,omitempty"`
	SharingInfo    *FolderSharingInfo `json:"sharing_info,omitempty"`
	PropertyGroups []PropertyGroup    `json:"property_groups,omitempty"`
}

func (m FolderMetadata) MarshalJSON() ([]byte, error) {
	type alias FolderMetadata
	return json.Marshal(struct {
		Tag string `json:".tag"`
		alias
	}{TagFolder, alias(m)})
}

// DeletedMetadata describes a path that used to hold a file or folder.
type DeletedMetadata struct {
	MetadataBase
}

func (m DeletedMetadata) MarshalJSON() ([]byte, error) {
	type alias DeletedMetadata
	return json.Marshal(struct {
		Tag string `json:".tag"`
		alias
	}{TagDeleted, alias(m)})
}

// decodeMetadata picks the concrete metadata type from the .tag discriminant.
func decodeMetadata(b []byte) (Metadata, error) {
	tag, err := decodeTag(b)
	if err != nil {
		return nil, fmt.Errorf("decoding metadata tag: %w", err)
	}

	var m Metadata
	switch tag {
	case TagFile:
		m = &FileMetadata{}
	case TagFolder:
		m = &FolderMetadata{}
	case TagDeleted:
		m = &DeletedMetadata{}
	default:
		return nil, fmt.Errorf("unknown metadata tag %q", tag)
	}

	if err := json.Unmarshal(b, m); err != nil {
		return nil, fmt.Errorf("decoding %s metadata: %w", tag, err)
	}
	return m, nil
}

// FileSharingInfo is sharing info for a file inside a shared folder.
type FileSharingInfo struct {
	ReadOnly             bool   `json:"read_only"`
	ParentSharedFolderID string `json:"parent_shared_folder_id"`
	ModifiedBy           string `json:"modified_by,omitempty"`
}

// FolderSharingInfo is sharing info for a folder that is or is inside a shared folder.
type FolderSharingInfo struct {
	ReadOnly             bool   `json:"read_only"`
	ParentSharedFolderID string `json:"parent_shared_folder_id,omitempty"`
	SharedFolderID       string `json:"shared_folder_id,omitempty"`
	TraverseOnly         bool   `json:"traverse_only"`
	NoAccess             bool   `json:"no_access"`
}

// SymlinkInfo is set on files that are symlinks.
type SymlinkInfo struct {
	Target string `json:"target"`
}

// ExportInfo is set on files that can only be exported, such as Paper docs.
type ExportInfo struct {
	ExportAs      string   `json:"export_as,omitempty"`
	ExportOptions []string `json:"export_options,omitempty"`
}

// FileLockMetadata describes a lock held on a file.
type FileLockMetadata struct {
	IsLockholder        *bool      `json:"is_lockholder,omitempty"`
	LockholderName      string     `json:"lockholder_name,omitempty"`
	LockholderAccountID AccountID  `json:"lockholder_account_id,omitempty"`
	Created             *time.Time `json:"created,omitempty"`
}

// MediaInfo is either pending or carries photo/video metadata.
type MediaInfo struct {
	Tag      string         `json:".tag"`
	Metadata *MediaMetadata `json:"metadata,omitempty"`
}

// MediaInfo tags.
const (
	MediaInfoPending  = "pending"
	MediaInfoMetadata = "metadata"
)

// MediaMetadata is photo or video metadata, selected by Tag.
type MediaMetadata struct {
	Tag        string          `json:".tag"`
	Dimensions *Dimensions     `json:"dimensions,omitempty"`
	Location   *GpsCoordinates `json:"location,omitempty"`
	TimeTaken  *time.Time      `json:"time_taken,omitempty"`
	Duration   *uint64         `json:"duration,omitempty"`
}

// Dimensions of a photo or video.
type Dimensions struct {
	Height uint64 `json:"height"`
	Width  uint64 `json:"width"`
}

// GpsCoordinates of a photo or video.
type GpsCoordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// GetMetadataArg is the argument to files/get_metadata.
type GetMetadataArg struct {
	Path                            string              `json:"path"`
	IncludeMediaInfo                bool                `json:"include_media_info,omitempty"`
	IncludeDeleted                  bool                `json:"include_deleted,omitempty"`
	IncludeHasExplicitSharedMembers bool                `json:"include_has_explicit_shared_members,omitempty"`
	IncludePropertyGroups           *TemplateFilterBase `json:"include_property_groups,omitempty"`
}

// CreateFolderArg is the argument to files/create_folder_v2.
type CreateFolderArg struct {
	Path       string `json:"path"`
	Autorename bool   `json:"autorename,omitempty"`
}

// CreateFolderResult is the result of files/create_folder_v2.
type CreateFolderResult struct {
	Metadata FolderMetadata `json:"metadata"`
}

// ListFolderArg is the argument to files/list_folder.
//
// IncludeMountedFolders and IncludeNonDownloadableFiles default to true on
// the server; the Exclude* fields flip them.
type ListFolderArg struct {
	Path                            string
	Recursive                       bool
	IncludeMediaInfo                bool
	IncludeDeleted                  bool
	IncludeHasExplicitSharedMembers bool
	ExcludeMountedFolders           bool
	Limit                           uint32
	SharedLink                      *SharedLink
	IncludePropertyGroups           *TemplateFilterBase
	ExcludeNonDownloadableFiles     bool
}

func (a ListFolderArg) MarshalJSON() ([]byte, error) {
	wire := struct {
		Path                            string              `json:"path"`
		Recursive                       bool                `json:"recursive"`
		IncludeMediaInfo                bool                `json:"include_media_info,omitempty"`
		IncludeDeleted                  bool                `json:"include_deleted"`
		IncludeHasExplicitSharedMembers bool                `json:"include_has_explicit_shared_members,omitempty"`
		IncludeMountedFolders           bool                `json:"include_mounted_folders"`
		Limit                           uint32              `json:"limit,omitempty"`
		SharedLink                      *SharedLink         `json:"shared_link,omitempty"`
		IncludePropertyGroups           *TemplateFilterBase `json:"include_property_groups,omitempty"`
		IncludeNonDownloadableFiles     bool                `json:"include_non_downloadable_files"`
	}{
		Path:                            a.Path,
		Recursive:                       a.Recursive,
		IncludeMediaInfo:                a.IncludeMediaInfo,
		IncludeDeleted:                  a.IncludeDeleted,
		IncludeHasExplicitSharedMembers: a.IncludeHasExplicitSharedMembers,
		IncludeMountedFolders:           !a.ExcludeMountedFolders,
		Limit:                           a.Limit,
		SharedLink:                      a.SharedLink,
		IncludePropertyGroups:           a.IncludePropertyGroups,
		IncludeNonDownloadableFiles:     !a.ExcludeNonDownloadableFiles,
	}
	return json.Marshal(wire)
}

// ListFolderResult is one page of a folder listing.
type ListFolderResult struct {
	Entries []Metadata `json:"entries"`
	Cursor  string     `json:"cursor"`
	HasMore bool       `json:"has_more"`
}

func (r *ListFolderResult) UnmarshalJSON(b []byte) error {
	var wire struct {
		Entries []json.RawMessage `json:"entries"`
		Cursor  string            `json:"cursor"`
		HasMore bool              `json:"has_more"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}

	entries := make([]Metadata, 0, len(wire.Entries))
	for _, raw := range wire.Entries {
		m, err := decodeMetadata(raw)
		if err != nil {
			return err
		}
		entries = append(entries, m)
	}

	*r = ListFolderResult{Entries: entries, Cursor: wire.Cursor, HasMore: wire.HasMore}
	return nil
}

// Files returns the file entries of the page.
func (r *ListFolderResult) Files() []*FileMetadata {
	return FilesOnly(r.Entries)
}

// FilesOnly filters entries down to files.
func FilesOnly(entries []Metadata) []*FileMetadata {
	files := make([]*FileMetadata, 0, len(entries))
	for _, e := range entries {
		if f, ok := e.(*FileMetadata); ok {
			files = append(files, f)
		}
	}
	return files
}

// ListFolderContinueArg is the argument to files/list_folder/continue.
type ListFolderContinueArg struct {
	Cursor string `json:"cursor"`
}

// ListFolderGetLatestCursorResult is the result of files/list_folder/get_latest_cursor.
type ListFolderGetLatestCursorResult struct {
	Cursor string `json:"cursor"`
}

// ListFolderLongpollArg is the argument to files/list_folder/longpoll.
type ListFolderLongpollArg struct {
	Cursor string `json:"cursor"`
	// Timeout in seconds, between 30 and 480. Zero lets the server pick 30.
	Timeout uint64 `json:"timeout,omitempty"`
}

// ListFolderLongpollResult is the result of files/list_folder/longpoll.
type ListFolderLongpollResult struct {
	Changes bool `json:"changes"`
	// Backoff is the number of seconds to wait before polling again.
	Backoff *uint64 `json:"backoff,omitempty"`
}

// UploadArg is the argument to files/upload.
type UploadArg struct {
	Path           string
	Mode           WriteMode
	Autorename     bool
	ClientModified *time.Time
	Mute           bool
	PropertyGroups []PropertyGroup
	StrictConflict bool
	// ContentHash is filled in by the client when left empty.
	ContentHash string
}

// clientModifiedLayout is the second-precision UTC format Dropbox accepts.
const clientModifiedLayout = "2006-01-02T15:04:05Z"

func (a UploadArg) MarshalJSON() ([]byte, error) {
	mode := a.Mode
	if mode.Tag == "" {
		mode.Tag = WriteModeAdd
	}

	wire := struct {
		Path           string          `json:"path"`
		Mode           WriteMode       `json:"mode"`
		Autorename     bool            `json:"autorename"`
		ClientModified string          `json:"client_modified,omitempty"`
		Mute           bool            `json:"mute"`
		PropertyGroups []PropertyGroup `json:"property_groups,omitempty"`
		StrictConflict bool            `json:"strict_conflict"`
		ContentHash    string          `json:"content_hash,omitempty"`
	}{
		Path:           a.Path,
		Mode:           mode,
		Autorename:     a.Autorename,
		Mute:           a.Mute,
		PropertyGroups: a.PropertyGroups,
		StrictConflict: a.StrictConflict,
		ContentHash:    a.ContentHash,
	}
	if a.ClientModified != nil {
		wire.ClientModified = a.ClientModified.UTC().Format(clientModifiedLayout)
	}
	return json.Marshal(wire)
}

// DeleteArg is the argument to files/delete and files/delete_v2.
type DeleteArg struct {
	Path      string `json:"path"`
	ParentRev Rev    `json:"parent_rev,omitempty"`
}

// DeleteResult is the result of files/delete_v2.
type DeleteResult struct {
	Metadata Metadata `json:"metadata"`
}

func (r *DeleteResult) UnmarshalJSON(b []byte) error {
	var wire struct {
		Metadata json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	m, err := decodeMetadata(wire.Metadata)
	if err != nil {
		return err
	}
	r.Metadata = m
	return nil
}

// DownloadArg is the argument to files/download.
type DownloadArg struct {
	Path string `json:"path"`
	Rev  Rev    `json:"rev,omitempty"`

	// Start and Length select a byte range. Length zero reads to the end.
	Start  uint64 `json:"-"`
	Length uint64 `json:"-"`
}

// rangeHeader renders the HTTP Range header for the arg, or "" for the whole file.
func (a *DownloadArg) rangeHeader() string {
	switch {
	case a.Start == 0 && a.Length == 0:
		return ""
	case a.Length == 0:
		return fmt.Sprintf("bytes=%d-", a.Start)
	default:
		return fmt.Sprintf("bytes=%d-%d", a.Start, a.Start+a.Length-1)
	}
}
