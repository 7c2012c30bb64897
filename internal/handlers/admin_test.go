package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAdminAIRequestsRejectsBadFilters проверяет, что неверные фильтры отсекаются до обращения к базе.
func TestAdminAIRequestsRejectsBadFilters(t *testing.T) {
	e := newTestEcho()
	handler := NewAdminHandler(nil)

	cases := map[string]string{
		"/api/v1/admin/ai-requests?request_type=budget":  "invalid request_type",
		"/api/v1/admin/ai-requests?request_type=advisor": "invalid request_type",
		"/api/v1/admin/ai-requests?player_id=not-a-uuid": "invalid player_id",
		"/api/v1/admin/ai-requests?success=sometimes":    "invalid success",
		"/api/v1/admin/ai-requests?limit=0":              "invalid limit",
		"/api/v1/admin/ai-requests?offset=-1":            "invalid offset",
	}
	for target, want := range cases {
		c, rec := newRequest(e, http.MethodGet, target, "", uuid.New())
		require.NoError(t, handler.ListAIRequests(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)

		var failure map[string]string
		decodeBody(t, rec, &failure)
		assert.Equal(t, want, failure["error"], target)
	}
}

// TestAIRequestTypesMatchLoggedChannels проверяет, что фильтр знает каждый экран, пишущий в журнал.
func TestAIRequestTypesMatchLoggedChannels(t *testing.T) {
	for _, requestType := range []string{aiRequestAdvice, aiRequestNews, aiRequestOrganizations, aiRequestMissions, aiRequestQuiz} {
		_, ok := aiRequestTypes[requestType]
		assert.True(t, ok, requestType)
	}
	assert.Len(t, aiRequestTypes, 5)
}
