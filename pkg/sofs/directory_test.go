package sofs

import (
	"fmt"
	"testing"
)

func TestAddDirEntryGrowsToSecondCluster(t *testing.T) {

	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	dirNum, err := fs.Mkdir(RootInode, "many", 0755, 0, 0)
	if err != nil {
		t.Fatalf("Mkdir() unexpected error: %v", err)
	}

	// "." and ".." already occupy two slots; fill past DPC to force a
	// second directory cluster.
	for i := 0; i < DPC; i++ {
		name := fmt.Sprintf("f%d", i)
		if _, err := fs.Mknod(dirNum, name, 0644, 0, 0); err != nil {
			t.Fatalf("Mknod(%s) unexpected error: %v", name, err)
		}
	}

	dirIno, err := fs.getInode(dirNum)
	if err != nil {
		t.Fatalf("getInode() unexpected error: %v", err)
	}
	if dirIno.CluCount < 2 {
		t.Errorf("directory with %d entries should span at least 2 clusters -- got CluCount=%d", DPC+2, dirIno.CluCount)
	}

	names, _, err := fs.ReadDirNames(dirNum)
	if err != nil {
		t.Fatalf("ReadDirNames() unexpected error: %v", err)
	}
	if len(names) != DPC+2 {
		t.Errorf("ReadDirNames() -- expect %d entries but got %d", DPC+2, len(names))
	}

}

func TestRemoveDirEntryLeavesSlotReusable(t *testing.T) {

	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	if _, err := fs.Mknod(RootInode, "a", 0644, 0, 0); err != nil {
		t.Fatalf("Mknod() unexpected error: %v", err)
	}
	if err := fs.Unlink(RootInode, "a"); err != nil {
		t.Fatalf("Unlink() unexpected error: %v", err)
	}

	rootBefore, err := fs.getInode(RootInode)
	if err != nil {
		t.Fatalf("getInode() unexpected error: %v", err)
	}

	if _, err := fs.Mknod(RootInode, "b", 0644, 0, 0); err != nil {
		t.Fatalf("Mknod() unexpected error: %v", err)
	}

	rootAfter, err := fs.getInode(RootInode)
	if err != nil {
		t.Fatalf("getInode() unexpected error: %v", err)
	}
	if rootAfter.CluCount != rootBefore.CluCount {
		t.Errorf("reusing a freed directory slot should not grow CluCount -- before %d after %d", rootBefore.CluCount, rootAfter.CluCount)
	}

}

func TestCheckDirectoryEmptinessIgnoresDotEntries(t *testing.T) {

	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	dirNum, err := fs.Mkdir(RootInode, "empty", 0755, 0, 0)
	if err != nil {
		t.Fatalf("Mkdir() unexpected error: %v", err)
	}
	dirIno, err := fs.getInode(dirNum)
	if err != nil {
		t.Fatalf("getInode() unexpected error: %v", err)
	}

	empty, err := fs.CheckDirectoryEmptiness(dirIno)
	if err != nil {
		t.Fatalf("CheckDirectoryEmptiness() unexpected error: %v", err)
	}
	if !empty {
		t.Errorf("a freshly made directory with only . and .. -- expect empty but got non-empty")
	}

}
