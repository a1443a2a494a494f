package sofs

import "testing"

func TestResolvePathRejectsRelative(t *testing.T) {
	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)
	if _, _, err := fs.ResolvePath("etc/hosts", 0, 0); err != ErrRelativePath {
		t.Errorf("ResolvePath() on a relative path -- expect ErrRelativePath but got %v", err)
	}
}

func TestResolvePathRoot(t *testing.T) {
	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)
	n, ino, err := fs.ResolvePath("/", 0, 0)
	if err != nil {
		t.Fatalf("ResolvePath(/) unexpected error: %v", err)
	}
	if n != RootInode {
		t.Errorf("ResolvePath(/) -- expect RootInode but got %d", n)
	}
	if ino.Type() != TypeDirectory {
		t.Errorf("ResolvePath(/) Type() -- expect TypeDirectory but got %d", ino.Type())
	}
}

func TestResolvePathNestedDirectories(t *testing.T) {

	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	a, err := fs.Mkdir(RootInode, "a", 0755, 0, 0)
	if err != nil {
		t.Fatalf("Mkdir() unexpected error: %v", err)
	}
	b, err := fs.Mkdir(a, "b", 0755, 0, 0)
	if err != nil {
		t.Fatalf("Mkdir() unexpected error: %v", err)
	}
	if _, err := fs.Mknod(b, "c", 0644, 0, 0); err != nil {
		t.Fatalf("Mknod() unexpected error: %v", err)
	}

	n, ino, err := fs.ResolvePath("/a/b/c", 0, 0)
	if err != nil {
		t.Fatalf("ResolvePath(/a/b/c) unexpected error: %v", err)
	}
	if ino.Type() != TypeRegular {
		t.Errorf("ResolvePath(/a/b/c) Type() -- expect TypeRegular but got %d", ino.Type())
	}

	gotNum, _, err := fs.Lookup(b, "c")
	if err != nil {
		t.Fatalf("Lookup() unexpected error: %v", err)
	}
	if gotNum != n {
		t.Errorf("ResolvePath and Lookup disagree on inode number -- %d vs %d", n, gotNum)
	}

}

func TestResolvePathThroughNonDirectoryFails(t *testing.T) {
	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)
	if _, err := fs.Mknod(RootInode, "f", 0644, 0, 0); err != nil {
		t.Fatalf("Mknod() unexpected error: %v", err)
	}
	if _, _, err := fs.ResolvePath("/f/x", 0, 0); err != ErrNotADirectory {
		t.Errorf("ResolvePath() through a regular file -- expect ErrNotADirectory but got %v", err)
	}
}

func TestResolveParentSplitsLeafName(t *testing.T) {
	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	dirNum, err := fs.Mkdir(RootInode, "d", 0755, 0, 0)
	if err != nil {
		t.Fatalf("Mkdir() unexpected error: %v", err)
	}

	parentNum, _, leaf, err := fs.ResolveParent("/d/leaf", 0, 0)
	if err != nil {
		t.Fatalf("ResolveParent() unexpected error: %v", err)
	}
	if parentNum != dirNum {
		t.Errorf("ResolveParent() parent -- expect %d but got %d", dirNum, parentNum)
	}
	if leaf != "leaf" {
		t.Errorf("ResolveParent() leaf -- expect \"leaf\" but got %q", leaf)
	}
}

func TestReadSymlinkRejectsNonSymlink(t *testing.T) {
	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)
	rootIno, err := fs.getInode(RootInode)
	if err != nil {
		t.Fatalf("getInode() unexpected error: %v", err)
	}
	if _, err := fs.ReadSymlink(rootIno); err != ErrInvalidArgument {
		t.Errorf("ReadSymlink() on a directory -- expect ErrInvalidArgument but got %v", err)
	}
}
