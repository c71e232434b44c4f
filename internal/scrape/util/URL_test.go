package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jobcrawl-engine/internal/scrape/util"
)

func TestResolveURL(t *testing.T) {
	t.Parallel()

	base := "https://www.saramin.co.kr"
	assert.Equal(t, "https://cdn.example.com/a.png", util.ResolveURL(base, "//cdn.example.com/a.png"))
	assert.Equal(t, "https://www.saramin.co.kr/img/a.png", util.ResolveURL(base, "/img/a.png"))
	assert.Equal(t, "http://other.example.com/b.jpg", util.ResolveURL(base, "http://other.example.com/b.jpg"))
	assert.Equal(t, "", util.ResolveURL(base, "  "))
	assert.Equal(t, "", util.ResolveURL("not a base", "/x"))
}

func TestQueryParam(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "48213377", util.QueryParam("/zf_user/jobs/relay/view?view_type=search&rec_idx=48213377&location=ts", "rec_idx"))
	assert.Equal(t, "", util.QueryParam("/zf_user/jobs/relay/view?view_type=search", "rec_idx"))
}

func TestHostLimiter_DisabledIsNil(t *testing.T) {
	t.Parallel()

	hl := util.NewHostLimiter(0, 1)
	assert.Nil(t, hl)
	assert.NoError(t, hl.WaitURL(t.Context(), "https://www.saramin.co.kr/x"))
}
