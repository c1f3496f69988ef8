package assembly

import (
	"context"

	"github.com/poiesic/syllabus/core"
)

// LectureOutline is one lecture with its ordered sections.
type LectureOutline struct {
	Lecture  *core.Lecture   `json:"lecture"`
	Sections []*core.Section `json:"sections"`
}

// CourseOutline is the navigable structure of a course.
type CourseOutline struct {
	Course   *core.Course     `json:"course"`
	Lectures []LectureOutline `json:"lectures"`
}

// Outline returns the course with its lectures and sections in order.
func (a *Assembler) Outline(ctx context.Context, courseID core.ID) (*CourseOutline, error) {
	course, err := a.repo.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	lectures, err := a.repo.ListLectures(ctx, courseID)
	if err != nil {
		return nil, err
	}

	outline := &CourseOutline{Course: course, Lectures: make([]LectureOutline, 0, len(lectures))}
	for _, lecture := range lectures {
		sections, err := a.repo.ListSectionsByLecture(ctx, lecture.ID)
		if err != nil {
			return nil, err
		}
		if sections == nil {
			sections = []*core.Section{}
		}
		outline.Lectures = append(outline.Lectures, LectureOutline{Lecture: lecture, Sections: sections})
	}
	return outline, nil
}
