package dataset

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/wonny/walkforward/internal/contracts"
	"github.com/wonny/walkforward/pkg/redis"
)

// CachedProvider Redis 에 분할 결과를 캐시하는 공급자
// 키에는 적재된 데이터의 내용 해시가 들어가므로 관측치가 바뀌면 이전 분할은 쓰이지 않는다.
// 캐시 오류는 경고만 남기고 내부 공급자로 대체 (분할 결과는 결정적)
type CachedProvider struct {
	source  string
	inner   Provider
	cache   *redis.Cache
	ttl     time.Duration
	log     zerolog.Logger
	version string
}

// NewCachedProvider 캐시 공급자 생성
// inner 가 Versioned 가 아니면 캐시를 쓰지 않는다
func NewCachedProvider(source string, inner Provider, cache *redis.Cache, ttl time.Duration, log zerolog.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	return &CachedProvider{
		source: source,
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		log:    log.With().Str("component", "dataset.cache").Logger(),
	}
}

// Reset 데이터 버전을 잊고 내부 공급자도 초기화
func (p *CachedProvider) Reset() {
	p.version = ""
	if r, ok := p.inner.(Resetter); ok {
		r.Reset()
	}
}

// GetData 캐시 조회 후 없으면 내부 공급자 호출
func (p *CachedProvider) GetData(ctx context.Context, step contracts.TimeStep, heldOut int, enc contracts.Encoding) (*contracts.SplitBundle, error) {
	versioned, ok := p.inner.(Versioned)
	if p.cache == nil || !p.cache.Enabled() || !ok {
		return p.inner.GetData(ctx, step, heldOut, enc)
	}

	if p.version == "" {
		v, err := versioned.Fingerprint(ctx)
		if err != nil {
			return nil, err
		}
		p.version = v
		p.log.Debug().Str("source", p.source).Str("version", v).Msg("split cache version")
	}

	key := redis.SplitKey(p.source, p.version, heldOut, int(step), enc.String())

	var cached contracts.SplitBundle
	found, err := p.cache.Get(ctx, key, &cached)
	if err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("split cache read failed")
	}
	if found {
		p.log.Debug().Str("key", key).Msg("split cache hit")
		return &cached, nil
	}

	bundle, err := p.inner.GetData(ctx, step, heldOut, enc)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, bundle, p.ttl); err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("split cache write failed")
	}
	return bundle, nil
}
