package detections

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"github.com/viam-modules/tank-tracking/grid"
)

const sampleCSV = "\ufeffframe_idx,class_name,conf,x1,y1,x2,y2,cx,cy,polygon,note\n" +
	"0,swim,0.9,10,20,30,40,,,\"1,2,3\",first\n" +
	"0,rest,0.4,150,40,170,60,160,50,,\n" +
	"1.0,swim,n/a,12,22,32,42,21,31,,late\n" +
	"oops,swim,0.5,1,1,2,2,,,,\n" +
	"2,swim,0.7\n"

func newTestMapper(t *testing.T) *grid.Mapper {
	t.Helper()
	m, err := grid.NewMapper(grid.Settings{
		Grid:      &grid.GridSettings{Cols: 2, Rows: 1},
		Transform: &grid.GridTransform{CenterX: 0.5, CenterY: 0.5, ScaleX: 1, ScaleY: 1},
	}, 200, 100)
	test.That(t, err, test.ShouldBeNil)
	return m
}

func TestRead(t *testing.T) {
	s, err := Read(strings.NewReader(sampleCSV))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Columns[0], test.ShouldEqual, ColumnFrame)
	test.That(t, s.HasColumn("note"), test.ShouldBeTrue)
	test.That(t, s.Skipped, test.ShouldEqual, 1)
	test.That(t, s.Len(), test.ShouldEqual, 4)
	test.That(t, s.FrameIndices(), test.ShouldResemble, []int{0, 1, 2})
	test.That(t, s.LastFrame(), test.ShouldEqual, 2)

	first := s.Frames[0][0]
	test.That(t, first.ClassName, test.ShouldEqual, "swim")
	test.That(t, first.Conf, test.ShouldEqual, 0.9)
	test.That(t, first.HasBox, test.ShouldBeTrue)
	test.That(t, first.Polygon, test.ShouldEqual, "1,2,3")
	// derived centroid is the exact box midpoint
	test.That(t, first.HasCentroid, test.ShouldBeTrue)
	test.That(t, first.CX, test.ShouldEqual, 20.0)
	test.That(t, first.CY, test.ShouldEqual, 30.0)

	late := s.Frames[1][0]
	test.That(t, late.CX, test.ShouldEqual, 21.0)
	v, ok := late.Value(ColumnConf)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v.String(), test.ShouldEqual, "n/a")
	v, ok = late.Value("note")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v.String(), test.ShouldEqual, "late")

	short := s.Frames[2][0]
	test.That(t, short.HasBox, test.ShouldBeFalse)
	test.That(t, short.HasCentroid, test.ShouldBeFalse)
	_, ok = short.Value(ColumnX1)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestReadErrors(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = Read(strings.NewReader("class_name,cx,cy\nswim,1,2\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, ColumnFrame)

	_, err = Load(filepath.Join(t.TempDir(), "nope.csv"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadSkipsOutOfRangeFrames(t *testing.T) {
	body := "frame_idx,cx,cy\n3,1,2\n1e19,1,2\n-1,1,2\n99999999999,1,2\n2147483646,1,2\n"
	s, err := Read(strings.NewReader(body))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Skipped, test.ShouldEqual, 3)
	test.That(t, s.FrameIndices(), test.ShouldResemble, []int{3, 2147483646})
	test.That(t, s.LastFrame(), test.ShouldEqual, 2147483646)
	test.That(t, s.CountFrom(4), test.ShouldEqual, 1)
	test.That(t, s.CountFrom(0), test.ShouldEqual, 2)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "video.csv")
	test.That(t, os.WriteFile(path, []byte(sampleCSV), 0o644), test.ShouldBeNil)
	s, err := Load(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Len(), test.ShouldEqual, 4)
}

func TestValueFormatting(t *testing.T) {
	test.That(t, FloatValue(1.5).String(), test.ShouldEqual, "1.5000")
	test.That(t, IntValue(12).String(), test.ShouldEqual, "12")
	test.That(t, ParseValue("abc").String(), test.ShouldEqual, "abc")
	test.That(t, ParseValue(" 2.25 ").String(), test.ShouldEqual, "2.2500")
	test.That(t, IntValue(3).Any(), test.ShouldEqual, int64(3))
	test.That(t, FloatValue(0.5).Any(), test.ShouldEqual, 0.5)
	test.That(t, TextValue("x").Any(), test.ShouldEqual, "x")
}

func TestAssign(t *testing.T) {
	s, err := Read(strings.NewReader(sampleCSV))
	test.That(t, err, test.ShouldBeNil)
	stats := Assign(s, newTestMapper(t))
	test.That(t, stats.Assigned, test.ShouldEqual, 3)
	test.That(t, stats.Unassigned, test.ShouldEqual, 1)

	test.That(t, s.Frames[0][0].Tank, test.ShouldEqual, 1)
	test.That(t, s.Frames[0][1].Tank, test.ShouldEqual, 2)
	test.That(t, s.Frames[2][0].Tank, test.ShouldEqual, NoTank)
	for _, dets := range s.Frames {
		for _, d := range dets {
			test.That(t, d.Tank >= NoTank && d.Tank <= 2, test.ShouldBeTrue)
		}
	}

	v, ok := s.Frames[0][1].Value(ColumnTank)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v.String(), test.ShouldEqual, "2")
	_, ok = s.Frames[2][0].Value(ColumnTank)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestGrouping(t *testing.T) {
	dets := []Detection{
		{Tank: 1, Conf: 0.4, ClassName: "a"},
		{Tank: 2, Conf: 0.8},
		{Tank: NoTank, Conf: 1},
		{Tank: 1, Conf: 0.9, ClassName: "b"},
		{Tank: 1, Conf: 0.4, ClassName: "c"},
	}
	groups := ByTank(dets)
	test.That(t, SortedKeys(groups), test.ShouldResemble, []int{1, 2})
	test.That(t, groups[1], test.ShouldHaveLength, 3)

	top := TopK(groups[1], 2)
	test.That(t, top, test.ShouldHaveLength, 2)
	test.That(t, top[0].ClassName, test.ShouldEqual, "b")
	test.That(t, top[1].ClassName, test.ShouldEqual, "a")
	// the input is left untouched
	test.That(t, groups[1][0].ClassName, test.ShouldEqual, "a")
}
