package meshfeat_test

import (
	"context"
	"fmt"
	"log"

	"github.com/hupe1980/meshfeat"
	"github.com/hupe1980/meshfeat/testutil"
)

func exampleStore() *testutil.Dataset {
	return testutil.NewDataset().
		AddPartition(0, []string{"pressure", "density"}, []int64{7, 8}).
		AddPartition(1, []string{"pressure", "density"}, []int64{9}).
		AddCycle(0, 0, 100, []float32{1.5, 2, 3.5, 4}).
		AddCycle(0, 1, 100, []float32{5.5, 6})
}

// ExampleReader_ReadZone reads the metric vector of one zone at one cycle.
func ExampleReader_ReadZone() {
	ctx := context.Background()

	r, err := meshfeat.Open(ctx, exampleStore().MemoryStore())
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	values, err := r.ReadZone(ctx, 0, 100, 9)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(values)
	// Output: [5.5 6]
}

// ExampleReader_ReadAllZonesInCycle stacks every partition at one cycle.
func ExampleReader_ReadAllZonesInCycle() {
	ctx := context.Background()

	r, err := meshfeat.Open(ctx, exampleStore().MemoryStore(), meshfeat.WithParallelism(2))
	if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	mat, err := r.ReadAllZonesInCycle(ctx, 0, 100)
	if err != nil {
		log.Fatal(err)
	}
	zones, _ := r.CycleZoneIDs(ctx)
	for i, z := range zones {
		fmt.Println(z, mat.Row(i))
	}
	// Output:
	// 7 [1.5 2]
	// 8 [3.5 4]
	// 9 [5.5 6]
}
