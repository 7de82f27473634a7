package sequence

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

// Demo returns the classroom demo: green at home, blue at position 1, then a
// synchronized sweep and back home.
func Demo() *Sequence {
	return &Sequence{
		Name: "demo",
		Steps: []Step{
			{Color: []int{0, 255, 0}},
			{Move: []float64{0, 0, 0, 0}, Speed: intp(40)},
			{Pause: floatp(3)},
			{Color: []int{0, 0, 255}},
			{Move: []float64{74, 85, 0, 0}, Speed: intp(40)},
			{Pause: floatp(5)},
			{SyncMove: []float64{-160, 0, 0, 180}, Speed: intp(100)},
			{Move: []float64{0, 0, 0, 0}, Speed: intp(100)},
		},
	}
}
