package constants

type (
	APIStatus   string
	CachePrefix string
)

const (
	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixCommunityDaily CachePrefix = "COMMUNITY_DAILY_"
	CachePrefixAggregate      CachePrefix = "AGGREGATE_"
)

// GlobalCrewID is the crew every user's activity counts towards.
const GlobalCrewID = "global"

// DayLayout keys DailyStat rows by UTC calendar day.
const DayLayout = "2006-01-02"
