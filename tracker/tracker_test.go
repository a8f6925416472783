package tracker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"github.com/viam-modules/tank-tracking/detections"
)

const (
	LabelDet0 string = "swim"
	LabelDet1 string = "rest"
)

type FakeDetector struct {
	it  int
	res [][]detections.Detection
}

func (fd *FakeDetector) fakeDetections() []detections.Detection {
	fd.it += 1
	return fd.res[fd.it-1]
}

func (fd *FakeDetector) done() bool {
	return fd.it >= len(fd.res)
}

func centroid(frame int, label string, x, y float64) detections.Detection {
	return detections.Detection{
		Frame:       frame,
		ClassName:   label,
		Conf:        0.9,
		CX:          x,
		CY:          y,
		HasCentroid: true,
		Tank:        1,
	}
}

func boxed(frame int, label string, x1, y1, x2, y2 float64) detections.Detection {
	return detections.Detection{
		Frame:       frame,
		ClassName:   label,
		Conf:        0.9,
		X1:          x1,
		Y1:          y1,
		X2:          x2,
		Y2:          y2,
		HasBox:      true,
		CX:          (x1 + x2) / 2,
		CY:          (y1 + y2) / 2,
		HasCentroid: true,
		Tank:        1,
	}
}

func testConfig(initDelay, hitCounterMax int) Config {
	cfg := DefaultConfig()
	cfg.InitializationDelay = initDelay
	cfg.HitCounterMax = hitCounterMax
	return cfg
}

// runAll feeds every frame of the fake detector and returns the outputs per frame.
func runAll(t *testing.T, tr *Tracker, fd *FakeDetector) [][]detections.Detection {
	t.Helper()
	var outs [][]detections.Detection
	for !fd.done() {
		outs = append(outs, tr.Update(fd.fakeDetections()))
	}
	return outs
}

func TestConfirmationDelay(t *testing.T) {
	res := make([][]detections.Detection, 6)
	for f := range res {
		res[f] = []detections.Detection{centroid(f, LabelDet0, 50, 50)}
	}
	tr, err := New(testConfig(3, 15))
	test.That(t, err, test.ShouldBeNil)
	outs := runAll(t, tr, &FakeDetector{res: res})

	for f := 0; f < 3; f++ {
		test.That(t, outs[f], test.ShouldBeEmpty)
	}
	for f := 3; f < 6; f++ {
		test.That(t, outs[f], test.ShouldHaveLength, 1)
		test.That(t, outs[f][0].TrackID, test.ShouldEqual, 1)
		test.That(t, outs[f][0].Frame, test.ShouldEqual, f)
		test.That(t, outs[f][0].ClassName, test.ShouldEqual, LabelDet0)
		test.That(t, outs[f][0].CX, test.ShouldAlmostEqual, 50, 1e-9)
		test.That(t, outs[f][0].CY, test.ShouldAlmostEqual, 50, 1e-9)
	}
	test.That(t, tr.Live(), test.ShouldEqual, 1)
}

func TestConfirmedOnCreation(t *testing.T) {
	tr, err := New(testConfig(0, 15))
	test.That(t, err, test.ShouldBeNil)
	out := tr.Update([]detections.Detection{centroid(0, LabelDet0, 10, 10)})
	test.That(t, out, test.ShouldHaveLength, 1)
	test.That(t, out[0].TrackID, test.ShouldEqual, 1)
}

func TestTentativeTrackDiesOnMiss(t *testing.T) {
	fd := &FakeDetector{res: [][]detections.Detection{
		{centroid(0, LabelDet0, 50, 50)},
		{},
		{centroid(2, LabelDet0, 50, 50)},
		{centroid(3, LabelDet0, 50, 50)},
	}}
	tr, err := New(testConfig(1, 15))
	test.That(t, err, test.ShouldBeNil)
	outs := runAll(t, tr, fd)
	test.That(t, outs[0], test.ShouldBeEmpty)
	// one miss ends the tentative track even though hit_counter_max is 15
	test.That(t, outs[1], test.ShouldBeEmpty)
	test.That(t, outs[2], test.ShouldBeEmpty)
	// the same animal comes back under a new id
	test.That(t, outs[3], test.ShouldHaveLength, 1)
	test.That(t, outs[3][0].TrackID, test.ShouldEqual, 2)
	test.That(t, tr.Live(), test.ShouldEqual, 1)
	test.That(t, tr.tracks[0].id, test.ShouldEqual, 2)
}

func TestDeletedTrackNeverReappears(t *testing.T) {
	var res [][]detections.Detection
	for f := 0; f < 5; f++ {
		res = append(res, []detections.Detection{centroid(f, LabelDet0, 50, 50)})
	}
	res = append(res, nil, nil, nil)
	for f := 8; f < 10; f++ {
		res = append(res, []detections.Detection{centroid(f, LabelDet0, 50, 50)})
	}
	tr, err := New(testConfig(0, 2))
	test.That(t, err, test.ShouldBeNil)
	outs := runAll(t, tr, &FakeDetector{res: res})

	// coasting for hit_counter_max frames, then gone
	test.That(t, outs[5], test.ShouldHaveLength, 1)
	test.That(t, outs[6], test.ShouldHaveLength, 1)
	test.That(t, outs[6][0].TrackID, test.ShouldEqual, 1)
	test.That(t, outs[7], test.ShouldBeEmpty)
	for f := 8; f < 10; f++ {
		test.That(t, outs[f], test.ShouldHaveLength, 1)
		test.That(t, outs[f][0].TrackID, test.ShouldEqual, 2)
	}
}

func TestTwoAnimals(t *testing.T) {
	var res [][]detections.Detection
	for f := 0; f < 10; f++ {
		a := centroid(f, LabelDet0, 20+2*float64(f), 20)
		b := centroid(f, LabelDet1, 200-2*float64(f), 150)
		if f%2 == 1 {
			a, b = b, a
		}
		res = append(res, []detections.Detection{a, b})
	}
	tr, err := New(testConfig(1, 5))
	test.That(t, err, test.ShouldBeNil)
	outs := runAll(t, tr, &FakeDetector{res: res})

	for f := 1; f < 10; f++ {
		test.That(t, outs[f], test.ShouldHaveLength, 2)
		test.That(t, outs[f][0].TrackID, test.ShouldEqual, 1)
		test.That(t, outs[f][1].TrackID, test.ShouldEqual, 2)
		// identities follow the animals, not the row order
		test.That(t, outs[f][0].ClassName, test.ShouldEqual, LabelDet0)
		test.That(t, outs[f][1].ClassName, test.ShouldEqual, LabelDet1)
	}
}

func TestGating(t *testing.T) {
	cfg := testConfig(0, 5)
	cfg.DistanceThreshold = 10
	tr, err := New(cfg)
	test.That(t, err, test.ShouldBeNil)
	tr.Update([]detections.Detection{centroid(0, LabelDet0, 50, 50)})
	out := tr.Update([]detections.Detection{centroid(1, LabelDet0, 100, 50)})
	test.That(t, out, test.ShouldHaveLength, 2)
	test.That(t, out[0].TrackID, test.ShouldEqual, 1)
	test.That(t, out[1].TrackID, test.ShouldEqual, 2)
	test.That(t, out[1].CX, test.ShouldAlmostEqual, 100, 1e-9)
}

func TestIOUDistance(t *testing.T) {
	cfg := testConfig(0, 5)
	cfg.DistanceFunction = DistanceIOU
	cfg.DistanceThreshold = 0.8
	tr, err := New(cfg)
	test.That(t, err, test.ShouldBeNil)
	var ids []int
	for f := 0; f < 5; f++ {
		x := 10 + 2*float64(f)
		out := tr.Update([]detections.Detection{
			boxed(f, LabelDet0, x, 10, x+20, 30),
			boxed(f, LabelDet1, 100, 100, 120, 120),
		})
		test.That(t, out, test.ShouldHaveLength, 2)
		ids = append(ids, out[0].TrackID, out[1].TrackID)
	}
	for i := 0; i < len(ids); i += 2 {
		test.That(t, ids[i], test.ShouldEqual, 1)
		test.That(t, ids[i+1], test.ShouldEqual, 2)
	}
}

func TestIgnoresDetectionsWithoutCentroid(t *testing.T) {
	tr, err := New(testConfig(0, 5))
	test.That(t, err, test.ShouldBeNil)
	out := tr.Update([]detections.Detection{{Frame: 0, Tank: 1}})
	test.That(t, out, test.ShouldBeEmpty)
	test.That(t, tr.Live(), test.ShouldEqual, 0)
}

func TestIOU(t *testing.T) {
	a := box{0, 0, 10, 10}
	test.That(t, iou(a, a), test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, iou(a, box{5, 0, 15, 10}), test.ShouldAlmostEqual, 50.0/150.0, 1e-9)
	test.That(t, iou(a, box{20, 20, 30, 30}), test.ShouldEqual, 0.0)
	moved := a.centeredAt(20, 20)
	test.That(t, moved, test.ShouldResemble, box{15, 15, 25, 25})
}

func TestSmoothing(t *testing.T) {
	cfg := testConfig(0, 5)
	cfg.PastDetectionsLength = 3
	tr := newTrack(1, centroid(0, LabelDet0, 0, 0), cfg)
	for i := 1; i <= 4; i++ {
		tr.history.Add(observation{float64(3 * i), 0})
	}
	x, _ := tr.smoothed()
	// mean of 6, 9 and 12
	test.That(t, x, test.ShouldAlmostEqual, 9, 1e-9)

	cfg.PastDetectionsLength = 0
	tr = newTrack(1, centroid(0, LabelDet0, 0, 0), cfg)
	tr.history.Add(observation{7, 1})
	x, y := tr.smoothed()
	test.That(t, x, test.ShouldEqual, 7.0)
	test.That(t, y, test.ShouldEqual, 1.0)
}

func TestKalmanConstantVelocity(t *testing.T) {
	kf := newKalmanFilter(0, 0)
	for i := 1; i <= 40; i++ {
		kf.predict()
		kf.update(2*float64(i), -float64(i))
	}
	vx, vy := kf.velocity()
	test.That(t, vx, test.ShouldAlmostEqual, 2, 0.1)
	test.That(t, vy, test.ShouldAlmostEqual, -1, 0.1)
	kf.predict()
	x, y := kf.position()
	test.That(t, x, test.ShouldAlmostEqual, 82, 0.5)
	test.That(t, y, test.ShouldAlmostEqual, -41, 0.5)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	test.That(t, cfg.Validate(), test.ShouldBeNil)

	bad := []func(*Config){
		func(c *Config) { c.DistanceFunction = "manhattan" },
		func(c *Config) { c.DistanceThreshold = 0 },
		func(c *Config) { c.DistanceFunction = DistanceIOU },
		func(c *Config) { c.HitCounterMax = 0 },
		func(c *Config) { c.InitializationDelay = -1 },
		func(c *Config) { c.PastDetectionsLength = -1 },
		func(c *Config) { c.MaxAnimalsPerTank = 0 },
	}
	for _, mutate := range bad {
		c := DefaultConfig()
		mutate(&c)
		test.That(t, c.Validate(), test.ShouldNotBeNil)
		_, err := New(c)
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.json")
	body := `{"distance_function": "iou", "distance_threshold": 0.7, "max_animals_per_tank": 2}`
	test.That(t, os.WriteFile(path, []byte(body), 0o644), test.ShouldBeNil)
	cfg, err := LoadConfig(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.DistanceFunction, test.ShouldEqual, DistanceIOU)
	test.That(t, cfg.MaxAnimalsPerTank, test.ShouldEqual, 2)
	test.That(t, cfg.HitCounterMax, test.ShouldEqual, DefaultHitCounterMax)

	test.That(t, os.WriteFile(path, []byte(`{"hit_counter_max": 0}`), 0o644), test.ShouldBeNil)
	_, err = LoadConfig(path)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSuggestThreshold(t *testing.T) {
	s, err := detections.Read(strings.NewReader("frame_idx,cx,cy\n0,0,0\n1,3,4\n2,6,8\n3,,\n"))
	test.That(t, err, test.ShouldBeNil)
	threshold, ok := SuggestThreshold(s, 0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, threshold, test.ShouldAlmostEqual, 15, 1e-9)

	_, ok = SuggestThreshold(s, 1)
	test.That(t, ok, test.ShouldBeFalse)
}
