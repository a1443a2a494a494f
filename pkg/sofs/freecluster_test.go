package sofs

import "testing"

func TestAllocFreeDataClusterRoundTrip(t *testing.T) {

	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	before, err := fs.StatFS()
	if err != nil {
		t.Fatalf("StatFS() unexpected error: %v", err)
	}

	c, err := fs.AllocDataCluster(RootInode)
	if err != nil {
		t.Fatalf("AllocDataCluster() unexpected error: %v", err)
	}

	mid, err := fs.StatFS()
	if err != nil {
		t.Fatalf("StatFS() unexpected error: %v", err)
	}
	if mid.FreeClusters != before.FreeClusters-1 {
		t.Errorf("FreeClusters after one alloc -- expect %d but got %d", before.FreeClusters-1, mid.FreeClusters)
	}

	if err := fs.FreeDataCluster(c); err != nil {
		t.Fatalf("FreeDataCluster() unexpected error: %v", err)
	}

	after, err := fs.StatFS()
	if err != nil {
		t.Fatalf("StatFS() unexpected error: %v", err)
	}
	if after.FreeClusters != before.FreeClusters {
		t.Errorf("FreeClusters after round trip -- expect %d but got %d", before.FreeClusters, after.FreeClusters)
	}

}

// TestFreeClusterCacheCyclingCrossesRepository exercises replenish/deplete by
// allocating and freeing enough clusters to cross the DZC-sized cache
// boundary multiple times.
func TestFreeClusterCacheCyclingCrossesRepository(t *testing.T) {

	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	before, err := fs.StatFS()
	if err != nil {
		t.Fatalf("StatFS() unexpected error: %v", err)
	}

	const batch = DZC + DZC/2

	held := make([]uint32, 0, batch)
	for i := 0; i < batch; i++ {
		c, err := fs.AllocDataCluster(RootInode)
		if err != nil {
			t.Fatalf("AllocDataCluster() #%d unexpected error: %v", i, err)
		}
		held = append(held, c)
	}

	seen := make(map[uint32]bool, len(held))
	for _, c := range held {
		if seen[c] {
			t.Fatalf("AllocDataCluster() returned cluster %d twice", c)
		}
		seen[c] = true
	}

	for _, c := range held {
		if err := fs.FreeDataCluster(c); err != nil {
			t.Fatalf("FreeDataCluster(%d) unexpected error: %v", c, err)
		}
	}

	after, err := fs.StatFS()
	if err != nil {
		t.Fatalf("StatFS() unexpected error: %v", err)
	}
	if after.FreeClusters != before.FreeClusters {
		t.Errorf("FreeClusters after a full alloc/free cycle crossing the cache boundary -- expect %d but got %d", before.FreeClusters, after.FreeClusters)
	}

}

func TestFreeDataClusterRejectsOutOfRange(t *testing.T) {
	path := formatTestVolume(t)
	fs := mountTestVolume(t, path)

	sb, err := fs.superblock()
	if err != nil {
		t.Fatalf("superblock() unexpected error: %v", err)
	}
	if err := fs.FreeDataCluster(sb.DZoneTotal); err != ErrInvalidArgument {
		t.Errorf("FreeDataCluster() past DZoneTotal -- expect ErrInvalidArgument but got %v", err)
	}
}
