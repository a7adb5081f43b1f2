package driver

import (
	"strings"
	"testing"

	"bindforge/internal/cast"
)

func TestDiskCacheRoundTrip(t *testing.T) {
	cache, err := OpenDiskCacheAt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}
	raw := apiDocument(linux, "")
	doc, err := cast.Decode(strings.NewReader(raw), "linux.json")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	key := contentDigest([]byte(raw))
	if key.IsZero() {
		t.Fatalf("zero digest")
	}

	var miss DiskPayload
	if ok, err := cache.Get(key, &miss); ok || err != nil {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}
	if err := cache.Put(key, &DiskPayload{Schema: diskCacheSchemaVersion, Source: "linux.json", Digest: key, Document: doc}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got DiskPayload
	ok, err := cache.Get(key, &got)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	fromCache, err := cast.Build(got.Document, "linux.json")
	if err != nil {
		t.Fatalf("Build(cached): %v", err)
	}
	direct, err := cast.Build(doc, "linux.json")
	if err != nil {
		t.Fatalf("Build(direct): %v", err)
	}
	if len(fromCache.Decls) != len(direct.Decls) {
		t.Fatalf("decls = %d, want %d", len(fromCache.Decls), len(direct.Decls))
	}
	for i := range direct.Decls {
		a, b := direct.Decls[i], fromCache.Decls[i]
		if a.Kind() != b.Kind() || a.DeclName() != b.DeclName() || a.Loc() != b.Loc() {
			t.Fatalf("decl %d = %s %s, want %s %s", i, b.Kind(), b.DeclName(), a.Kind(), a.DeclName())
		}
	}
	rec, _ := fromCache.Lookup(cast.KindRecord, "point")
	if r := rec.(*cast.Record); r.Size != 8 || len(r.Fields) != 2 || r.Fields[1].Offset != 4 {
		t.Fatalf("record = %+v", r)
	}

	if err := cache.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if ok, _ := cache.Get(key, &got); ok {
		t.Fatalf("entry survived DropAll")
	}
}

func TestContentDigestDependsOnContent(t *testing.T) {
	if contentDigest([]byte("a")) == contentDigest([]byte("b")) {
		t.Fatalf("different content, same digest")
	}
	if contentDigest([]byte("a")) != contentDigest([]byte("a")) {
		t.Fatalf("digest is not stable")
	}
}
