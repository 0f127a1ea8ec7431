package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sdelicata/dbx/pkg/contenthash"
)

// UploadMaxSize is the largest payload files/upload accepts.
const UploadMaxSize = 150 * 1024 * 1024

// FilesGetMetadata returns the metadata of a file or folder.
func (c *Client) FilesGetMetadata(ctx context.Context, arg *GetMetadataArg) (Metadata, error) {
	if err := ValidatePath(arg.Path); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if md, ok := c.cache.get(arg); ok {
			c.logger.Trace().Str("path", arg.Path).Msg("metadata cache hit")
			return md, nil
		}
	}

	raw, err := rpcCall[GetMetadataError, json.RawMessage](ctx, c, "files/get_metadata", arg)
	if err != nil {
		return nil, err
	}

	md, err := decodeMetadata(raw)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.put(arg, md)
	}
	return md, nil
}

// FilesCreateFolderV2 creates a folder.
func (c *Client) FilesCreateFolderV2(ctx context.Context, arg *CreateFolderArg) (*CreateFolderResult, error) {
	if err := ValidateWritePath(arg.Path); err != nil {
		return nil, err
	}

	res, err := rpcCall[CreateFolderError, CreateFolderResult](ctx, c, "files/create_folder_v2", arg)
	if err != nil {
		return nil, err
	}

	c.invalidate(arg.Path, res.Metadata.PathLower)
	return &res, nil
}

// FilesListFolder returns the first page of a folder listing.
func (c *Client) FilesListFolder(ctx context.Context, arg *ListFolderArg) (*ListFolderResult, error) {
	if err := ValidatePath(arg.Path); err != nil {
		return nil, err
	}

	c.logger.Debug().Str("path", arg.Path).Bool("recursive", arg.Recursive).Msg("listing Dropbox folder")

	res, err := rpcCall[ListFolderError, ListFolderResult](ctx, c, "files/list_folder", arg)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// FilesListFolderContinue returns the next page of a listing.
func (c *Client) FilesListFolderContinue(ctx context.Context, arg *ListFolderContinueArg) (*ListFolderResult, error) {
	res, err := rpcCall[ListFolderContinueError, ListFolderResult](ctx, c, "files/list_folder/continue", arg)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// FilesListFolderAll follows the cursor until the listing is complete and
// returns every entry along with the final cursor.
func (c *Client) FilesListFolderAll(ctx context.Context, arg *ListFolderArg) ([]Metadata, string, error) {
	res, err := c.FilesListFolder(ctx, arg)
	if err != nil {
		return nil, "", err
	}

	entries := res.Entries
	c.logger.Debug().Int("entries", len(res.Entries)).Bool("has_more", res.HasMore).Msg("received first page")

	for res.HasMore {
		res, err = c.FilesListFolderContinue(ctx, &ListFolderContinueArg{Cursor: res.Cursor})
		if err != nil {
			return nil, "", err
		}
		entries = append(entries, res.Entries...)
		c.logger.Debug().Int("entries", len(res.Entries)).Bool("has_more", res.HasMore).Msg("received continuation page")
	}

	c.logger.Info().Int("total_entries", len(entries)).Msg("Dropbox listing complete")
	return entries, res.Cursor, nil
}

// FilesListFolderGetLatestCursor returns a cursor for the current state of a
// folder without listing it.
func (c *Client) FilesListFolderGetLatestCursor(ctx context.Context, arg *ListFolderArg) (*ListFolderGetLatestCursorResult, error) {
	if err := ValidatePath(arg.Path); err != nil {
		return nil, err
	}

	res, err := rpcCall[ListFolderError, ListFolderGetLatestCursorResult](ctx, c, "files/list_folder/get_latest_cursor", arg)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// FilesListFolderLongpoll blocks until the folder behind cursor changes or the
// timeout passes.
func (c *Client) FilesListFolderLongpoll(ctx context.Context, arg *ListFolderLongpollArg) (*ListFolderLongpollResult, error) {
	resp, err := c.send(ctx, &request{route: "files/list_folder/longpoll", style: styleNotify, arg: arg}, decodeError[ListFolderLongpollError])
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var res ListFolderLongpollResult
	if err := decodeBody(resp.Body, &res); err != nil {
		return nil, fmt.Errorf("failed to decode files/list_folder/longpoll response: %w", err)
	}
	return &res, nil
}

// FilesUpload creates or replaces a file with the content of r. The payload
// is buffered so the request can be retried, and its content hash is sent
// along so Dropbox rejects a corrupted transfer.
func (c *Client) FilesUpload(ctx context.Context, arg *UploadArg, r io.Reader) (*FileMetadata, error) {
	if err := ValidateWritePath(arg.Path); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(r, c.maxUpload+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload content: %w", err)
	}
	if int64(len(data)) > c.maxUpload {
		return nil, fmt.Errorf("upload to %s exceeds the %d byte limit of files/upload", arg.Path, c.maxUpload)
	}

	commit := *arg
	if commit.ContentHash == "" {
		commit.ContentHash = contenthash.Bytes(data)
	}

	c.logger.Debug().Str("path", arg.Path).Int("bytes", len(data)).Msg("uploading file")

	resp, err := c.send(ctx, &request{route: "files/upload", style: styleUpload, arg: commit, body: data}, decodeError[UploadError])
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var md FileMetadata
	if err := json.NewDecoder(resp.Body).Decode(&md); err != nil {
		return nil, fmt.Errorf("failed to decode files/upload response: %w", err)
	}

	c.invalidate(arg.Path, md.PathLower)
	return &md, nil
}

// FilesDelete deletes a file or folder and returns the metadata it had.
func (c *Client) FilesDelete(ctx context.Context, arg *DeleteArg) (Metadata, error) {
	if err := ValidateWritePath(arg.Path); err != nil {
		return nil, err
	}

	raw, err := rpcCall[DeleteError, json.RawMessage](ctx, c, "files/delete", arg)
	if err != nil {
		return nil, err
	}

	md, err := decodeMetadata(raw)
	if err != nil {
		return nil, err
	}

	c.invalidate(arg.Path, md.Base().PathLower)
	return md, nil
}

// FilesDeleteV2 deletes a file or folder, wrapping the old metadata in a DeleteResult.
func (c *Client) FilesDeleteV2(ctx context.Context, arg *DeleteArg) (*DeleteResult, error) {
	if err := ValidateWritePath(arg.Path); err != nil {
		return nil, err
	}

	res, err := rpcCall[DeleteError, DeleteResult](ctx, c, "files/delete_v2", arg)
	if err != nil {
		return nil, err
	}

	c.invalidate(arg.Path, res.Metadata.Base().PathLower)
	return &res, nil
}

// FilesDownload downloads a file. The caller must close the returned body.
func (c *Client) FilesDownload(ctx context.Context, arg *DownloadArg) (*FileMetadata, io.ReadCloser, error) {
	if err := ValidatePath(arg.Path); err != nil {
		return nil, nil, err
	}

	resp, err := c.send(ctx, &request{
		route:  "files/download",
		style:  styleDownload,
		arg:    arg,
		ranges: arg.rangeHeader(),
	}, decodeError[DownloadError])
	if err != nil {
		return nil, nil, err
	}

	var md FileMetadata
	if err := json.NewDecoder(bytes.NewBufferString(resp.Header.Get(headerAPIResult))).Decode(&md); err != nil {
		_ = resp.Body.Close()
		return nil, nil, fmt.Errorf("failed to decode %s header: %w", headerAPIResult, err)
	}

	return &md, resp.Body, nil
}

func (c *Client) invalidate(paths ...string) {
	if c.cache == nil {
		return
	}
	for _, p := range paths {
		if p != "" {
			c.cache.invalidate(p)
		}
	}
}
