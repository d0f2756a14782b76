package resource

import (
	"slices"
)

// store is the slot array behind a Table. Released handles go on a free
// list and are reused. It has no locking of its own.
type store struct {
	records  []record
	freeList []Handle
	seq      uint64
	live     int
}

type record struct {
	value  any
	fin    Finalizer
	seq    uint64
	typeID TypeID
	valid  bool
}

func newStore() *store {
	return &store{
		records:  make([]record, 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

func (s *store) put(typeID TypeID, value any, fin Finalizer) Handle {
	s.seq++
	s.live++
	r := record{
		typeID: typeID,
		value:  value,
		fin:    fin,
		seq:    s.seq,
		valid:  true,
	}

	if n := len(s.freeList); n > 0 {
		h := s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
		s.records[h-1] = r
		return h
	}

	s.records = append(s.records, r)
	return Handle(len(s.records))
}

func (s *store) get(h Handle) (*record, bool) {
	if h == 0 || int(h) > len(s.records) {
		return nil, false
	}
	r := &s.records[h-1]
	if !r.valid {
		return nil, false
	}
	return r, true
}

// take invalidates h and returns its record.
func (s *store) take(h Handle) (record, bool) {
	r, ok := s.get(h)
	if !ok {
		return record{}, false
	}
	out := *r
	*r = record{}
	s.freeList = append(s.freeList, h)
	s.live--
	return out, true
}

// takeAll invalidates every record and returns them newest first.
func (s *store) takeAll() ([]Handle, []record) {
	type item struct {
		r record
		h Handle
	}
	items := make([]item, 0, s.live)
	for i := range s.records {
		if s.records[i].valid {
			items = append(items, item{h: Handle(i + 1), r: s.records[i]})
		}
	}
	slices.SortFunc(items, func(a, b item) int {
		switch {
		case a.r.seq > b.r.seq:
			return -1
		case a.r.seq < b.r.seq:
			return 1
		}
		return 0
	})

	handles := make([]Handle, len(items))
	records := make([]record, len(items))
	for i, it := range items {
		handles[i] = it.h
		records[i] = it.r
	}
	s.records = nil
	s.freeList = nil
	s.live = 0
	return handles, records
}

func (s *store) each(fn func(Handle, TypeID, any) bool) {
	for i := range s.records {
		r := &s.records[i]
		if r.valid && !fn(Handle(i+1), r.typeID, r.value) {
			return
		}
	}
}
