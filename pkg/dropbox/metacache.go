package dropbox

import (
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"
)

// metadataCache memoizes get_metadata answers for slash paths.
type metadataCache struct {
	db *cache.Cache
}

func newMetadataCache(ttl time.Duration) *metadataCache {
	return &metadataCache{db: cache.New(ttl, 2*ttl)}
}

func metadataKey(arg *GetMetadataArg) (string, bool) {
	if !strings.HasPrefix(arg.Path, "/") || arg.IncludePropertyGroups != nil {
		return "", false
	}
	var flags strings.Builder
	for _, f := range []bool{arg.IncludeMediaInfo, arg.IncludeDeleted, arg.IncludeHasExplicitSharedMembers} {
		if f {
			flags.WriteByte('1')
		} else {
			flags.WriteByte('0')
		}
	}
	return strings.ToLower(arg.Path) + "|" + flags.String(), true
}

func (m *metadataCache) get(arg *GetMetadataArg) (Metadata, bool) {
	key, ok := metadataKey(arg)
	if !ok {
		return nil, false
	}
	v, found := m.db.Get(key)
	if !found {
		return nil, false
	}
	return cloneMetadata(v.(Metadata)), true
}

func (m *metadataCache) put(arg *GetMetadataArg, md Metadata) {
	if key, ok := metadataKey(arg); ok {
		m.db.Set(key, cloneMetadata(md), cache.DefaultExpiration)
	}
}

// cloneMetadata returns a shallow copy so callers cannot edit cached answers.
// Nested pointers such as MediaInfo are still shared.
func cloneMetadata(md Metadata) Metadata {
	switch m := md.(type) {
	case *FileMetadata:
		c := *m
		return &c
	case *FolderMetadata:
		c := *m
		return &c
	case *DeletedMetadata:
		c := *m
		return &c
	default:
		return md
	}
}

// invalidate drops p, everything below it and every ancestor of it. Ancestors
// go too because folder answers can carry sharing state derived from children.
func (m *metadataCache) invalidate(p string) {
	if !strings.HasPrefix(p, "/") {
		// id: and ns: paths cannot be mapped back to keys.
		m.db.Flush()
		return
	}

	lower := strings.ToLower(p)
	for key := range m.db.Items() {
		path, _, _ := strings.Cut(key, "|")
		if path == lower || strings.HasPrefix(path, lower+"/") || strings.HasPrefix(lower, path+"/") {
			m.db.Delete(key)
		}
	}
}

func (m *metadataCache) len() int {
	return m.db.ItemCount()
}
