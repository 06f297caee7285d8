package ginapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pilab-dev/creator-insights/api"
	serrors "github.com/pilab-dev/creator-insights/errors"
	"github.com/pilab-dev/creator-insights/log"
	"github.com/pilab-dev/creator-insights/services"
)

func queryInt64(c *gin.Context, name string) (*int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, serrors.InvalidArgument("%s must be an integer", name)
	}
	return &v, nil
}

func queryFloat(c *gin.Context, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, serrors.InvalidArgument("%s must be a number", name)
	}
	return &v, nil
}

func searchFilter(c *gin.Context) (services.SearchFilter, error) {
	f := services.SearchFilter{
		Category: c.Query("category"),
		Location: c.Query("location"),
		Query:    c.Query("search"),
	}
	var err error
	if f.MinFollowers, err = queryInt64(c, "minFollowers"); err != nil {
		return f, err
	}
	if f.MaxFollowers, err = queryInt64(c, "maxFollowers"); err != nil {
		return f, err
	}
	if f.MinEngagement, err = queryFloat(c, "minEngagement"); err != nil {
		return f, err
	}
	if f.MaxEngagement, err = queryFloat(c, "maxEngagement"); err != nil {
		return f, err
	}
	if raw := c.Query("limit"); raw != "" {
		if f.Limit, err = strconv.Atoi(raw); err != nil || f.Limit < 0 {
			return f, serrors.InvalidArgument("limit must be a positive integer")
		}
	}
	return f, nil
}

// SearchHandler lists visible influencers matching the query filters.
func (a *API) SearchHandler(c *gin.Context) {
	f, err := searchFilter(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	results, err := a.opts.Search.Search(c.Request.Context(), f)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"influencers": results, "total": len(results)})
}

// PublicProfileHandler shows a visible influencer to anyone.
func (a *API) PublicProfileHandler(c *gin.Context) {
	profile, err := a.opts.Search.PublicProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// BrandAnalyticsHandler summarises a comma separated selection of accounts.
func (a *API) BrandAnalyticsHandler(c *gin.Context) {
	var ids []string
	for _, id := range strings.Split(c.Query("accountIds"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	summary, err := a.opts.Accounts.CampaignSummary(c.Request.Context(), ids)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// CronSyncHandler syncs every connected account; it is meant for an external scheduler.
func (a *API) CronSyncHandler(c *gin.Context) {
	results, err := a.opts.Sync.SyncAllAccounts(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	a.logger.Info(c.Request.Context(), "Triggered sync finished", log.Fields{"accounts": len(results)})
	c.JSON(http.StatusOK, api.CronSyncResponse{Success: true, Results: results})
}
