package sofs

import (
	"path/filepath"
	"testing"
)

const testVolumeSize = 256 * 1024 // 256 KiB, comfortably past the metadata overhead
const testVolumeInodes = 64

func formatTestVolume(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sofs.img")
	opts := FormatOptions{SizeBytes: testVolumeSize, TotalInodes: testVolumeInodes, VolumeName: "test"}
	if err := Format(path, opts); err != nil {
		t.Fatalf("Format() unexpected error: %v", err)
	}
	return path
}

func mountTestVolume(t *testing.T, path string) *FileSystem {
	t.Helper()
	fs, err := Mount(path, MountOptions{CacheBlocks: 32})
	if err != nil {
		t.Fatalf("Mount() unexpected error: %v", err)
	}
	t.Cleanup(func() {
		if err := fs.Unmount(); err != nil {
			t.Errorf("Unmount() unexpected error: %v", err)
		}
	})
	return fs
}

func TestFormatAndMountRoot(t *testing.T) {

	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	if fs.WasDirty() {
		t.Errorf("freshly formatted volume reported WasDirty() == true")
	}

	attr, err := fs.GetAttr(RootInode)
	if err != nil {
		t.Fatalf("GetAttr(root) unexpected error: %v", err)
	}
	if attr.Type != TypeDirectory {
		t.Errorf("root inode type -- expect TypeDirectory but got %d", attr.Type)
	}
	if attr.Links != 2 {
		t.Errorf("root inode links -- expect 2 but got %d", attr.Links)
	}

	names, inodes, err := fs.ReadDirNames(RootInode)
	if err != nil {
		t.Fatalf("ReadDirNames(root) unexpected error: %v", err)
	}
	if len(names) != 2 || names[0] != "." || names[1] != ".." {
		t.Errorf("root directory entries -- expect [. ..] but got %v", names)
	}
	if inodes[0] != RootInode || inodes[1] != RootInode {
		t.Errorf("root directory entries should both point at RootInode -- got %v", inodes)
	}

}

func TestMountRejectsBadMagic(t *testing.T) {

	path := filepath.Join(t.TempDir(), "bad.img")
	dev, err := CreateDevice(path, BlockSize)
	if err != nil {
		t.Fatalf("CreateDevice() unexpected error: %v", err)
	}
	if err := dev.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}

	if _, err := Mount(path, MountOptions{}); err == nil {
		t.Errorf("Mount() on a zeroed image -- expect an error but got nil")
	}

}

func TestMountReportsDirtyVolume(t *testing.T) {

	path := formatTestVolume(t)

	fs, err := Mount(path, MountOptions{})
	if err != nil {
		t.Fatalf("Mount() unexpected error: %v", err)
	}
	// Simulate a crash: close the device without clearing MountStatus.
	if err := fs.dev.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}

	fs2 := mountTestVolume(t, path)
	if !fs2.WasDirty() {
		t.Errorf("re-mounting after an unclean close -- expect WasDirty() == true")
	}

}

func TestMkdirMknodAndLookup(t *testing.T) {

	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	dirNum, err := fs.Mkdir(RootInode, "etc", 0755, 0, 0)
	if err != nil {
		t.Fatalf("Mkdir() unexpected error: %v", err)
	}

	fileNum, err := fs.Mknod(dirNum, "hosts", 0644, 0, 0)
	if err != nil {
		t.Fatalf("Mknod() unexpected error: %v", err)
	}

	gotNum, attr, err := fs.Lookup(dirNum, "hosts")
	if err != nil {
		t.Fatalf("Lookup() unexpected error: %v", err)
	}
	if gotNum != fileNum {
		t.Errorf("Lookup() -- expect inode %d but got %d", fileNum, gotNum)
	}
	if attr.Type != TypeRegular {
		t.Errorf("Lookup() attr.Type -- expect TypeRegular but got %d", attr.Type)
	}

	if _, err := fs.Mkdir(RootInode, "etc", 0755, 0, 0); err != ErrAlreadyExists {
		t.Errorf("Mkdir() on a duplicate name -- expect ErrAlreadyExists but got %v", err)
	}

	rootAttr, err := fs.GetAttr(RootInode)
	if err != nil {
		t.Fatalf("GetAttr(root) unexpected error: %v", err)
	}
	if rootAttr.Links != 3 {
		t.Errorf("root link count after one subdirectory -- expect 3 but got %d", rootAttr.Links)
	}

}

func TestWriteReadTruncateFile(t *testing.T) {

	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	n, err := fs.Mknod(RootInode, "data", 0644, 0, 0)
	if err != nil {
		t.Fatalf("Mknod() unexpected error: %v", err)
	}

	payload := make([]byte, BSLPC+128) // spans two clusters
	for i := range payload {
		payload[i] = byte(i)
	}

	written, err := fs.WriteFile(n, 0, payload)
	if err != nil {
		t.Fatalf("WriteFile() unexpected error: %v", err)
	}
	if written != len(payload) {
		t.Errorf("WriteFile() -- expect %d bytes written but got %d", len(payload), written)
	}

	attr, err := fs.GetAttr(n)
	if err != nil {
		t.Fatalf("GetAttr() unexpected error: %v", err)
	}
	if attr.Size != uint32(len(payload)) {
		t.Errorf("file size after write -- expect %d but got %d", len(payload), attr.Size)
	}

	readBuf := make([]byte, len(payload))
	read, err := fs.ReadFile(n, 0, readBuf)
	if err != nil {
		t.Fatalf("ReadFile() unexpected error: %v", err)
	}
	if read != len(payload) {
		t.Errorf("ReadFile() -- expect %d bytes read but got %d", len(payload), read)
	}
	for i := range payload {
		if readBuf[i] != payload[i] {
			t.Fatalf("ReadFile() content mismatch at byte %d -- expect %d but got %d", i, payload[i], readBuf[i])
		}
	}

	if err := fs.SetSize(n, 10); err != nil {
		t.Fatalf("SetSize() unexpected error: %v", err)
	}
	attr, err = fs.GetAttr(n)
	if err != nil {
		t.Fatalf("GetAttr() unexpected error: %v", err)
	}
	if attr.Size != 10 {
		t.Errorf("file size after truncate -- expect 10 but got %d", attr.Size)
	}

}

func TestUnlinkFreesInode(t *testing.T) {

	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	statBefore, err := fs.StatFS()
	if err != nil {
		t.Fatalf("StatFS() unexpected error: %v", err)
	}

	n, err := fs.Mknod(RootInode, "tmp", 0644, 0, 0)
	if err != nil {
		t.Fatalf("Mknod() unexpected error: %v", err)
	}
	if _, err := fs.WriteFile(n, 0, []byte("hello")); err != nil {
		t.Fatalf("WriteFile() unexpected error: %v", err)
	}

	if err := fs.Unlink(RootInode, "tmp"); err != nil {
		t.Fatalf("Unlink() unexpected error: %v", err)
	}

	if _, _, err := fs.Lookup(RootInode, "tmp"); err != ErrDoesNotExist {
		t.Errorf("Lookup() after Unlink -- expect ErrDoesNotExist but got %v", err)
	}

	statAfter, err := fs.StatFS()
	if err != nil {
		t.Fatalf("StatFS() unexpected error: %v", err)
	}
	if statAfter.FreeInodes != statBefore.FreeInodes {
		t.Errorf("free inode count after unlink -- expect it restored to %d but got %d", statBefore.FreeInodes, statAfter.FreeInodes)
	}
	if statAfter.FreeClusters != statBefore.FreeClusters {
		t.Errorf("free cluster count after unlink -- expect it restored to %d but got %d", statBefore.FreeClusters, statAfter.FreeClusters)
	}

}

func TestRmdirRejectsNonEmpty(t *testing.T) {

	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	dirNum, err := fs.Mkdir(RootInode, "sub", 0755, 0, 0)
	if err != nil {
		t.Fatalf("Mkdir() unexpected error: %v", err)
	}
	if _, err := fs.Mknod(dirNum, "file", 0644, 0, 0); err != nil {
		t.Fatalf("Mknod() unexpected error: %v", err)
	}

	if err := fs.Rmdir(RootInode, "sub"); err != ErrNotEmpty {
		t.Errorf("Rmdir() on a non-empty directory -- expect ErrNotEmpty but got %v", err)
	}

	if err := fs.Unlink(dirNum, "file"); err != nil {
		t.Fatalf("Unlink() unexpected error: %v", err)
	}
	if err := fs.Rmdir(RootInode, "sub"); err != nil {
		t.Errorf("Rmdir() on an empty directory -- unexpected error: %v", err)
	}

}

func TestSymlinkResolutionAndBudget(t *testing.T) {

	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	if _, err := fs.Mknod(RootInode, "target", 0644, 0, 0); err != nil {
		t.Fatalf("Mknod() unexpected error: %v", err)
	}
	if _, err := fs.Symlink(RootInode, "link1", "/target", 0, 0); err != nil {
		t.Fatalf("Symlink() unexpected error: %v", err)
	}

	num, ino, err := fs.ResolvePath("/link1", 0, 0)
	_ = num
	if err != nil {
		t.Fatalf("ResolvePath(/link1) unexpected error: %v", err)
	}
	if ino.Type() != TypeRegular {
		t.Errorf("ResolvePath(/link1) -- expect to land on the regular file but got type %d", ino.Type())
	}

	if _, err := fs.Symlink(RootInode, "link2", "/link1", 0, 0); err != nil {
		t.Fatalf("Symlink() unexpected error: %v", err)
	}
	if _, _, err := fs.ResolvePath("/link2", 0, 0); err != ErrTooManyLinks {
		t.Errorf("ResolvePath(/link2) through two symlinks -- expect ErrTooManyLinks but got %v", err)
	}

}

func TestRenameMovesEntryBetweenDirectories(t *testing.T) {

	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	srcDir, err := fs.Mkdir(RootInode, "src", 0755, 0, 0)
	if err != nil {
		t.Fatalf("Mkdir() unexpected error: %v", err)
	}
	dstDir, err := fs.Mkdir(RootInode, "dst", 0755, 0, 0)
	if err != nil {
		t.Fatalf("Mkdir() unexpected error: %v", err)
	}
	fileNum, err := fs.Mknod(srcDir, "file", 0644, 0, 0)
	if err != nil {
		t.Fatalf("Mknod() unexpected error: %v", err)
	}

	if err := fs.Rename(srcDir, "file", dstDir, "renamed"); err != nil {
		t.Fatalf("Rename() unexpected error: %v", err)
	}

	if _, _, err := fs.Lookup(srcDir, "file"); err != ErrDoesNotExist {
		t.Errorf("Lookup() in the old directory -- expect ErrDoesNotExist but got %v", err)
	}
	gotNum, _, err := fs.Lookup(dstDir, "renamed")
	if err != nil {
		t.Fatalf("Lookup() in the new directory unexpected error: %v", err)
	}
	if gotNum != fileNum {
		t.Errorf("Lookup() after rename -- expect inode %d but got %d", fileNum, gotNum)
	}

}
