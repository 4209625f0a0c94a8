package halstore

import (
	"fmt"
	"io/ioutil"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/golang/snappy"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// RemotePrefetcher is a prefetch hook for a store whose backing file lives
// in S3 rather than on local disk. It range-fetches pages of the remote
// object into an in-process cache, compressed with snappy, so that
// repeated ToPtr calls over the same range don't re-fetch from S3. It
// differs from the default local no-op hook only in what Fetch does; the
// rest of Store's behavior is identical for either backend.
type RemotePrefetcher struct {
	s3     *s3.S3
	bucket string
	key    string

	mu    sync.Mutex
	cache map[pageKey][]byte // page index -> snappy-compressed page bytes
}

// pageSize is the granularity at which RemotePrefetcher fetches and caches
// ranges; a prefetch request is rounded out to whole pages so adjacent
// ToPtr calls usually hit the cache.
const pageSize = 1 << 20 // 1 MiB

type pageKey uint64

// NewRemotePrefetcher builds a prefetcher against the given S3 object,
// using the default AWS credential chain.
func NewRemotePrefetcher(bucket, key string) (*RemotePrefetcher, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, errors.Wrap(err, "halstore: new aws session")
	}
	return &RemotePrefetcher{
		s3:     s3.New(sess),
		bucket: bucket,
		key:    key,
		cache:  make(map[pageKey][]byte),
	}, nil
}

// Fetch implements PrefetchHook: it ensures every page overlapping
// [offset, offset+size) is resident in the local cache.
func (p *RemotePrefetcher) Fetch(offset Offset, size uint64) error {
	first := pageKey(uint64(offset) / pageSize)
	last := pageKey((uint64(offset) + size) / pageSize)
	for pg := first; pg <= last; pg++ {
		if err := p.fetchPage(pg); err != nil {
			return err
		}
	}
	return nil
}

func (p *RemotePrefetcher) fetchPage(pg pageKey) error {
	p.mu.Lock()
	_, ok := p.cache[pg]
	p.mu.Unlock()
	if ok {
		return nil
	}

	start := uint64(pg) * pageSize
	end := start + pageSize - 1
	rangeHdr := fmt.Sprintf("bytes=%d-%d", start, end)
	out, err := p.s3.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key),
		Range:  aws.String(rangeHdr),
	})
	if err != nil {
		return errors.Wrapf(err, "halstore: s3 GetObject %s/%s range %s", p.bucket, p.key, rangeHdr)
	}
	defer out.Body.Close()
	raw, err := ioutil.ReadAll(out.Body)
	if err != nil {
		return errors.Wrap(err, "halstore: read s3 body")
	}
	compressed := snappy.Encode(nil, raw)
	log.Debug.Printf("halstore: cached remote page %d (%d bytes -> %d compressed)", pg, len(raw), len(compressed))

	p.mu.Lock()
	p.cache[pg] = compressed
	p.mu.Unlock()
	return nil
}

// Page returns the decompressed bytes of the page overlapping offset, for
// callers that want to inspect the cache directly (mainly tests).
func (p *RemotePrefetcher) Page(offset Offset) ([]byte, error) {
	pg := pageKey(uint64(offset) / pageSize)
	p.mu.Lock()
	compressed, ok := p.cache[pg]
	p.mu.Unlock()
	if !ok {
		return nil, errors.Errorf("halstore: page %d not cached", pg)
	}
	return snappy.Decode(nil, compressed)
}
