// Package fsadapter translates FUSE operations (github.com/jacobsa/fuse's
// fuseops/fuseutil layer) into calls against a mounted pkg/sofs.FileSystem.
// It is deliberately thin: every op takes the adapter's single mutex, maps
// fuseops.InodeID to a SOFS inode number, calls the Core API, and translates
// the result back.
package fsadapter

import (
	"os"
	"sync"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"

	"github.com/rafaelferreirapt/sofs14-sub000/pkg/elog"
	"github.com/rafaelferreirapt/sofs14-sub000/pkg/sofs"
)

// Adapter implements fuseutil.FileSystem over a mounted SOFS volume.
// fuseops.InodeID values are SOFS inode numbers shifted up by one, since
// FUSE reserves 0 and requires the root to be fuseops.RootInodeID (1) while
// SOFS's root inode number is 0.
type Adapter struct {
	fuseutil.NotImplementedFileSystem

	mu  sync.Mutex
	fs  *sofs.FileSystem
	log elog.Logger

	handles    map[fuseops.HandleID]uint32
	nextHandle fuseops.HandleID
}

// New wraps a mounted volume for serving over FUSE.
func New(fs *sofs.FileSystem, log elog.Logger) *Adapter {
	return &Adapter{
		fs:         fs,
		log:        log,
		handles:    make(map[fuseops.HandleID]uint32),
		nextHandle: 1,
	}
}

func toFuseID(n uint32) fuseops.InodeID  { return fuseops.InodeID(n) + 1 }
func toSofsID(id fuseops.InodeID) uint32 { return uint32(id) - 1 }

func errnoOf(err error) error {
	switch err {
	case nil:
		return nil
	case sofs.ErrDoesNotExist:
		return fuse.ENOENT
	case sofs.ErrAlreadyExists:
		return fuse.EEXIST
	case sofs.ErrNotADirectory, sofs.ErrIsADirectory, sofs.ErrInvalidArgument,
		sofs.ErrNameTooLong, sofs.ErrRelativePath:
		return fuse.EINVAL
	case sofs.ErrNotEmpty:
		return fuse.ENOTEMPTY
	case sofs.ErrAccessDenied, sofs.ErrOperationNotPermitted:
		return fuse.EPERM
	case sofs.ErrNoSpaceOnDevice:
		return fuse.ENOSPC
	default:
		return fuse.EIO
	}
}

func toAttr(a sofs.Attr) fuseops.InodeAttributes {
	mode := os.FileMode(a.Perm)
	switch a.Type {
	case sofs.TypeDirectory:
		mode |= os.ModeDir
	case sofs.TypeSymlink:
		mode |= os.ModeSymlink
	}
	return fuseops.InodeAttributes{
		Size:  uint64(a.Size),
		Nlink: uint64(a.Links),
		Mode:  mode,
		Atime: time.Unix(int64(a.ATime), 0),
		Mtime: time.Unix(int64(a.MTime), 0),
		Uid:   a.Owner,
		Gid:   a.Group,
	}
}

func (a *Adapter) Init(op *fuseops.InitOp) {
	op.Respond(nil)
}

func (a *Adapter) LookUpInode(op *fuseops.LookUpInodeOp) {
	a.mu.Lock()
	defer a.mu.Unlock()

	child, attr, err := a.fs.Lookup(toSofsID(op.Parent), op.Name)
	if err != nil {
		op.Respond(errnoOf(err))
		return
	}

	op.Entry = fuseops.ChildInodeEntry{
		Child:      toFuseID(child),
		Attributes: toAttr(attr),
	}
	op.Respond(nil)
}

func (a *Adapter) GetInodeAttributes(op *fuseops.GetInodeAttributesOp) {
	a.mu.Lock()
	defer a.mu.Unlock()

	attr, err := a.fs.GetAttr(toSofsID(op.Inode))
	if err != nil {
		op.Respond(errnoOf(err))
		return
	}
	op.Attributes = toAttr(attr)
	op.Respond(nil)
}

func (a *Adapter) SetInodeAttributes(op *fuseops.SetInodeAttributesOp) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := toSofsID(op.Inode)

	if op.Mode != nil {
		if err := a.fs.Chmod(n, uint16(op.Mode.Perm())); err != nil {
			op.Respond(errnoOf(err))
			return
		}
	}
	if op.Size != nil {
		if err := a.fs.SetSize(n, uint32(*op.Size)); err != nil {
			op.Respond(errnoOf(err))
			return
		}
	}
	if op.Atime != nil || op.Mtime != nil {
		attr, err := a.fs.GetAttr(n)
		if err != nil {
			op.Respond(errnoOf(err))
			return
		}
		at, mt := attr.ATime, attr.MTime
		if op.Atime != nil {
			at = uint32(op.Atime.Unix())
		}
		if op.Mtime != nil {
			mt = uint32(op.Mtime.Unix())
		}
		if err := a.fs.Utime(n, at, mt); err != nil {
			op.Respond(errnoOf(err))
			return
		}
	}

	attr, err := a.fs.GetAttr(n)
	if err != nil {
		op.Respond(errnoOf(err))
		return
	}
	op.Attributes = toAttr(attr)
	op.Respond(nil)
}

func (a *Adapter) ForgetInode(op *fuseops.ForgetInodeOp) {
	op.Respond(nil)
}

func (a *Adapter) MkDir(op *fuseops.MkDirOp) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n, err := a.fs.Mkdir(toSofsID(op.Parent), op.Name, uint16(op.Mode.Perm()), 0, 0)
	if err != nil {
		op.Respond(errnoOf(err))
		return
	}
	attr, err := a.fs.GetAttr(n)
	if err != nil {
		op.Respond(errnoOf(err))
		return
	}
	op.Entry = fuseops.ChildInodeEntry{Child: toFuseID(n), Attributes: toAttr(attr)}
	op.Respond(nil)
}

func (a *Adapter) CreateFile(op *fuseops.CreateFileOp) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n, err := a.fs.Mknod(toSofsID(op.Parent), op.Name, uint16(op.Mode.Perm()), 0, 0)
	if err != nil {
		op.Respond(errnoOf(err))
		return
	}
	attr, err := a.fs.GetAttr(n)
	if err != nil {
		op.Respond(errnoOf(err))
		return
	}

	a.nextHandle++
	h := a.nextHandle
	a.handles[h] = n

	op.Entry = fuseops.ChildInodeEntry{Child: toFuseID(n), Attributes: toAttr(attr)}
	op.Handle = h
	op.Respond(nil)
}

func (a *Adapter) CreateSymlink(op *fuseops.CreateSymlinkOp) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n, err := a.fs.Symlink(toSofsID(op.Parent), op.Name, op.Target, 0, 0)
	if err != nil {
		op.Respond(errnoOf(err))
		return
	}
	attr, err := a.fs.GetAttr(n)
	if err != nil {
		op.Respond(errnoOf(err))
		return
	}
	op.Entry = fuseops.ChildInodeEntry{Child: toFuseID(n), Attributes: toAttr(attr)}
	op.Respond(nil)
}

func (a *Adapter) ReadSymlink(op *fuseops.ReadSymlinkOp) {
	a.mu.Lock()
	defer a.mu.Unlock()

	target, err := a.fs.Readlink(toSofsID(op.Inode))
	if err != nil {
		op.Respond(errnoOf(err))
		return
	}
	op.Target = target
	op.Respond(nil)
}

func (a *Adapter) RmDir(op *fuseops.RmDirOp) {
	a.mu.Lock()
	defer a.mu.Unlock()
	op.Respond(errnoOf(a.fs.Rmdir(toSofsID(op.Parent), op.Name)))
}

func (a *Adapter) Unlink(op *fuseops.UnlinkOp) {
	a.mu.Lock()
	defer a.mu.Unlock()
	op.Respond(errnoOf(a.fs.Unlink(toSofsID(op.Parent), op.Name)))
}

func (a *Adapter) OpenDir(op *fuseops.OpenDirOp) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextHandle++
	h := a.nextHandle
	a.handles[h] = toSofsID(op.Inode)
	op.Handle = h
	op.Respond(nil)
}

func (a *Adapter) ReadDir(op *fuseops.ReadDirOp) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n, ok := a.handles[op.Handle]
	if !ok {
		op.Respond(fuse.EINVAL)
		return
	}

	names, inodes, err := a.fs.ReadDirNames(n)
	if err != nil {
		op.Respond(errnoOf(err))
		return
	}

	var written int
	for i := int(op.Offset); i < len(names); i++ {
		childAttr, err := a.fs.GetAttr(inodes[i])
		if err != nil {
			continue
		}
		dt := fuseops.DT_File
		switch childAttr.Type {
		case sofs.TypeDirectory:
			dt = fuseops.DT_Directory
		case sofs.TypeSymlink:
			dt = fuseops.DT_Link
		}
		n := fuseutil.WriteDirent(op.Dst[written:], fuseops.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  toFuseID(inodes[i]),
			Name:   names[i],
			Type:   dt,
		})
		if n == 0 {
			break
		}
		written += n
	}

	op.BytesRead = written
	op.Respond(nil)
}

func (a *Adapter) ReleaseDirHandle(op *fuseops.ReleaseDirHandleOp) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.handles, op.Handle)
	op.Respond(nil)
}

func (a *Adapter) OpenFile(op *fuseops.OpenFileOp) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextHandle++
	h := a.nextHandle
	a.handles[h] = toSofsID(op.Inode)
	op.Handle = h
	op.Respond(nil)
}

func (a *Adapter) ReadFile(op *fuseops.ReadFileOp) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n, ok := a.handles[op.Handle]
	if !ok {
		op.Respond(fuse.EINVAL)
		return
	}

	buf := make([]byte, op.Size)
	read, err := a.fs.ReadFile(n, op.Offset, buf)
	if err != nil {
		op.Respond(errnoOf(err))
		return
	}
	op.BytesRead = read
	op.Respond(nil)
}

func (a *Adapter) WriteFile(op *fuseops.WriteFileOp) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n, ok := a.handles[op.Handle]
	if !ok {
		op.Respond(fuse.EINVAL)
		return
	}

	_, err := a.fs.WriteFile(n, op.Offset, op.Data)
	op.Respond(errnoOf(err))
}

func (a *Adapter) SyncFile(op *fuseops.SyncFileOp) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n, ok := a.handles[op.Handle]
	if !ok {
		op.Respond(fuse.EINVAL)
		return
	}
	op.Respond(errnoOf(a.fs.Fsync(n)))
}

func (a *Adapter) FlushFile(op *fuseops.FlushFileOp) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n, ok := a.handles[op.Handle]
	if !ok {
		op.Respond(fuse.EINVAL)
		return
	}
	op.Respond(errnoOf(a.fs.Fsync(n)))
}

func (a *Adapter) ReleaseFileHandle(op *fuseops.ReleaseFileHandleOp) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.handles, op.Handle)
	op.Respond(nil)
}
