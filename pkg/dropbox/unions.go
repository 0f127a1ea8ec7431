package dropbox

// Unions that are plain structs decode here so that void members in their
// bare-string form are accepted wherever they are nested.

func (u *PathRoot) UnmarshalJSON(b []byte) error {
	type wire PathRoot
	*u = PathRoot{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *RootInfo) UnmarshalJSON(b []byte) error {
	type wire RootInfo
	*u = RootInfo{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *WriteMode) UnmarshalJSON(b []byte) error {
	type wire WriteMode
	*u = WriteMode{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *TemplateFilterBase) UnmarshalJSON(b []byte) error {
	type wire TemplateFilterBase
	*u = TemplateFilterBase{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *MediaInfo) UnmarshalJSON(b []byte) error {
	type wire MediaInfo
	*u = MediaInfo{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *MediaMetadata) UnmarshalJSON(b []byte) error {
	type wire MediaMetadata
	*u = MediaMetadata{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *AccountType) UnmarshalJSON(b []byte) error {
	type wire AccountType
	*u = AccountType{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *AccessError) UnmarshalJSON(b []byte) error {
	type wire AccessError
	*u = AccessError{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *LookupError) UnmarshalJSON(b []byte) error {
	type wire LookupError
	*u = LookupError{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *WriteConflictError) UnmarshalJSON(b []byte) error {
	type wire WriteConflictError
	*u = WriteConflictError{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *WriteError) UnmarshalJSON(b []byte) error {
	type wire WriteError
	*u = WriteError{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *TemplateError) UnmarshalJSON(b []byte) error {
	type wire TemplateError
	*u = TemplateError{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *InvalidPropertyGroupError) UnmarshalJSON(b []byte) error {
	type wire InvalidPropertyGroupError
	*u = InvalidPropertyGroupError{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *GetMetadataError) UnmarshalJSON(b []byte) error {
	type wire GetMetadataError
	*u = GetMetadataError{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *CreateFolderError) UnmarshalJSON(b []byte) error {
	type wire CreateFolderError
	*u = CreateFolderError{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *ListFolderError) UnmarshalJSON(b []byte) error {
	type wire ListFolderError
	*u = ListFolderError{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *ListFolderContinueError) UnmarshalJSON(b []byte) error {
	type wire ListFolderContinueError
	*u = ListFolderContinueError{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *ListFolderLongpollError) UnmarshalJSON(b []byte) error {
	type wire ListFolderLongpollError
	*u = ListFolderLongpollError{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *DeleteError) UnmarshalJSON(b []byte) error {
	type wire DeleteError
	*u = DeleteError{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}

func (u *DownloadError) UnmarshalJSON(b []byte) error {
	type wire DownloadError
	*u = DownloadError{}
	return decodeUnion(b, (*wire)(u), &u.Tag)
}
