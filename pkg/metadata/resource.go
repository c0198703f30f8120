package metadata

// ResourceKind discriminates the variants of a Resource.
type ResourceKind int

const (
	ResourceFolder ResourceKind = iota
	ResourceFile
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceFolder:
		return "folder"
	case ResourceFile:
		return "file"
	default:
		return "unknown"
	}
}

// Resource is the result of resolving a slash-separated path: exactly one
// of Folder or File is set, indicated by Kind. Callers switch on Kind
// instead of probing both pointers.
type Resource struct {
	Kind   ResourceKind
	Folder *Folder
	File   *FileHeader
}

// FolderResource wraps a folder as a path-resolution result.
func FolderResource(f *Folder) Resource {
	return Resource{Kind: ResourceFolder, Folder: f}
}

// FileResource wraps a file as a path-resolution result.
func FileResource(h *FileHeader) Resource {
	return Resource{Kind: ResourceFile, File: h}
}

// Securable returns the access-control view of whichever variant is set.
func (r Resource) Securable() Securable {
	if r.Kind == ResourceFolder {
		return r.Folder
	}
	return r.File
}

// Name returns the entry name of whichever variant is set.
func (r Resource) Name() string {
	if r.Kind == ResourceFolder {
		return r.Folder.Name
	}
	return r.File.Name
}

// Trashed reports whether the resolved entry is in the trash.
func (r Resource) Trashed() bool {
	if r.Kind == ResourceFolder {
		return r.Folder.Deleted
	}
	return r.File.Deleted
}
