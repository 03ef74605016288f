package folkmap

type Stats struct {
	Size                    int
	Capacity                int
	TableSize               int
	Tombstones              int
	TombstonesCapacityRatio float32
}
