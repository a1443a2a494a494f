package sofs

// Errno is a member of the closed error taxonomy the core returns. Core
// operations return nil or one of the *Errno values below, unwrapped;
// OpenDevice and CreateDevice (and so Mount and Format) also pass host
// file open/create errors through unchanged. Adapters that only care about
// the taxonomy can recover it with errors.As.
type Errno struct {
	name string
}

func (e *Errno) Error() string {
	return e.name
}

func errno(name string) *Errno {
	return &Errno{name: name}
}

// Argument errors.
var (
	ErrInvalidArgument = errno("invalid argument")
	ErrNameTooLong     = errno("name too long")
	ErrRelativePath    = errno("relative path")
	ErrNotADirectory   = errno("not a directory")
	ErrIsADirectory    = errno("is a directory")
	ErrNotEmpty        = errno("directory not empty")
	ErrTooManyLinks    = errno("too many symbolic links")
	ErrFileTooLarge    = errno("file too large")
	ErrAlreadyExists   = errno("already exists")
	ErrDoesNotExist    = errno("does not exist")
)

// Permission errors.
var (
	ErrAccessDenied          = errno("access denied")
	ErrOperationNotPermitted = errno("operation not permitted")
)

// Resource errors.
var (
	ErrNoSpaceOnDevice = errno("no space on device")
	ErrNoInodes        = errno("no free inodes")
	ErrHardlinkLimit   = errno("hard link count limit reached")
)

// Consistency errors — indicate on-disk corruption unless triggered by a
// faulty external mutation of the image.
var (
	ErrInUseInodeInvalid       = errno("in-use inode failed validation")
	ErrFreeDirtyInodeInvalid   = errno("free-dirty inode failed validation")
	ErrFreeCleanInodeInvalid   = errno("free-clean inode failed validation")
	ErrReferenceListInvalid    = errno("free list linkage is inconsistent")
	ErrClusterHeaderInvalid    = errno("cluster header failed validation")
	ErrClusterAlreadyInList    = errno("cluster already mapped")
	ErrClusterNotInList        = errno("cluster not mapped")
	ErrWrongOwnerInode         = errno("cluster owner does not match inode")
	ErrDirectoryInvalid        = errno("directory content failed validation")
	ErrDirectoryEntryInvalid   = errno("directory entry failed validation")
	ErrClusterMappingInvalid   = errno("cluster mapping is inconsistent")
	ErrLowerLevelInconsistency = errno("lower-level inconsistency detected")
)

// Device errors.
var (
	ErrDeviceNotOpen = errno("device not open")
	ErrDeviceBusy    = errno("device busy")
	ErrIO            = errno("i/o error")
	ErrBadFileSize   = errno("backing file size is not a multiple of the block size")
)

// scratch-slot / metadata-access errors (pkg-internal but part of the same
// taxonomy — returned to callers unchanged if they escape a public entry
// point).
var (
	errNotLoaded    = errno("metadata slot not loaded")
	errInvalidIndex = errno("invalid metadata index")
)
