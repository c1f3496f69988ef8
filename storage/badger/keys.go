package badger

import (
	"encoding/binary"

	"github.com/poiesic/syllabus/core"
)

// Key prefixes for different data types.
// Primary records live under a 3-letter prefix; indexes append a qualifier letter.
const (
	coursePrefix         = "crs"
	lecturePrefix        = "lec"
	lectureCoursePrefix  = "lecc"
	resourcePrefix       = "res"
	resourceCoursePrefix = "resc"
	piecePrefix          = "pce"
	pieceResourcePrefix  = "pcer"
	pieceCoursePrefix    = "pcec"
	sectionPrefix        = "sec"
	sectionLecturePrefix = "secl"
	sectionCoursePrefix  = "secc"
	chunkPrefix          = "chk"
	chunkCoursePrefix    = "chkc"
	vectorPrefix         = "vec"
	collectionPrefix     = "vcl"

	courseIDSeq   = "seq:crs"
	lectureIDSeq  = "seq:lec"
	resourceIDSeq = "seq:res"
	pieceIDSeq    = "seq:pce"
	sectionIDSeq  = "seq:sec"
	chunkIDSeq    = "seq:chk"
)

// makeKey builds prefix:part1part2... with each part written as 8 BigEndian bytes
// so lexicographic order matches numeric order.
func makeKey(prefix string, parts ...uint64) []byte {
	buf := make([]byte, len(prefix)+1+8*len(parts))
	offset := copy(buf, prefix)
	buf[offset] = ':'
	offset++
	for _, part := range parts {
		binary.BigEndian.PutUint64(buf[offset:], part)
		offset += 8
	}
	return buf
}

func makeCourseKey(id core.ID) []byte {
	return makeKey(coursePrefix, uint64(id))
}

func makeLectureKey(id core.ID) []byte {
	return makeKey(lecturePrefix, uint64(id))
}

// makeLectureCourseKey generates a composite key for the course's lecture index.
// Format: prefix:courseID:orderIndex:lectureID
func makeLectureCourseKey(l *core.Lecture) []byte {
	return makeKey(lectureCoursePrefix, uint64(l.CourseID), orderBits(l.OrderIndex), uint64(l.ID))
}

func makeResourceKey(id core.ID) []byte {
	return makeKey(resourcePrefix, uint64(id))
}

// makeResourceCourseKey generates a composite key for the course's resource index.
// Format: prefix:courseID:resourceID
func makeResourceCourseKey(courseID, resourceID core.ID) []byte {
	return makeKey(resourceCoursePrefix, uint64(courseID), uint64(resourceID))
}

func makePieceKey(id core.ID) []byte {
	return makeKey(piecePrefix, uint64(id))
}

// makePieceResourceKey generates a composite key for the resource's piece index.
// Format: prefix:resourceID:orderInResource:pieceID
func makePieceResourceKey(p *core.ContentPiece) []byte {
	return makeKey(pieceResourcePrefix, uint64(p.ResourceID), orderBits(p.OrderInResource), uint64(p.ID))
}

// makePieceCourseKey generates a composite key for the course's piece index.
// Format: prefix:courseID:pieceID
func makePieceCourseKey(courseID, pieceID core.ID) []byte {
	return makeKey(pieceCoursePrefix, uint64(courseID), uint64(pieceID))
}

func makeSectionKey(id core.ID) []byte {
	return makeKey(sectionPrefix, uint64(id))
}

// makeSectionLectureKey generates a composite key for the lecture's section index.
// Format: prefix:lectureID:orderIndex:sectionID
func makeSectionLectureKey(s *core.Section) []byte {
	return makeKey(sectionLecturePrefix, uint64(s.LectureID), orderBits(s.OrderIndex), uint64(s.ID))
}

// makeSectionCourseKey generates a composite key for the course's section index.
// Format: prefix:courseID:sectionID
func makeSectionCourseKey(courseID, sectionID core.ID) []byte {
	return makeKey(sectionCoursePrefix, uint64(courseID), uint64(sectionID))
}

func makeChunkKey(id core.ID) []byte {
	return makeKey(chunkPrefix, uint64(id))
}

// makeChunkCourseKey generates a composite key for the course's chunk index.
// Format: prefix:courseID:sectionID:orderInSection:chunkID
func makeChunkCourseKey(c *core.Chunk) []byte {
	return makeKey(chunkCoursePrefix, uint64(c.CourseID), uint64(c.SectionID), orderBits(c.OrderInSection), uint64(c.ID))
}

// makeCollectionKey generates the registry key of a vector collection.
func makeCollectionKey(name string) []byte {
	return []byte(collectionPrefix + ":" + name)
}

// makeVectorKey generates the key of one vector item.
// Format: prefix:collection\x00itemID
func makeVectorKey(collection, itemID string) []byte {
	return []byte(vectorPrefix + ":" + collection + "\x00" + itemID)
}

// makeVectorPrefix generates the prefix shared by all items of a collection.
func makeVectorPrefix(collection string) []byte {
	return []byte(vectorPrefix + ":" + collection + "\x00")
}

// orderBits maps a signed order value onto uint64 preserving sort order.
func orderBits(order int) uint64 {
	return uint64(int64(order)) ^ (1 << 63)
}
