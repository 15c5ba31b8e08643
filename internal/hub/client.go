package hub

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"hotelhub-linencount/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Location 宿主应用中的酒店位置
type Location struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Room 宿主应用每日清扫列表中的房间
type Room struct {
	RoomID string `json:"room_id"`
}

// hubResponse Hotel Hub API 响应包
type hubResponse struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

// Client Hotel Hub 宿主应用 API 客户端
// Supplies the reference data this module consumes but does not own:
// locations, the daily room list, user display names and capability checks.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger

	mu        sync.RWMutex
	nameCache map[string]string // user_id -> display name
}

// NewClient 创建 Hotel Hub 客户端
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(3 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetHeader("X-Api-Key", apiKey)
	}

	return &Client{
		httpClient: client,
		logger:     logger,
		nameCache:  map[string]string{},
	}
}

func (c *Client) get(path string, params map[string]string, out any) error {
	var response hubResponse
	resp, err := c.httpClient.R().
		SetQueryParams(params).
		SetResult(&response).
		Get(path)
	if err != nil {
		return fmt.Errorf("failed to call hub API %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("hub API %s returned HTTP %d", path, resp.StatusCode())
	}
	if response.Status != 0 {
		return fmt.Errorf("hub API error: %s (status: %d)", response.Msg, response.Status)
	}
	if out != nil {
		if err := json.Unmarshal(response.Data, out); err != nil {
			return fmt.Errorf("failed to unmarshal hub response: %w", err)
		}
	}
	return nil
}

// ListLocations 查询启用的酒店位置列表
func (c *Client) ListLocations() ([]Location, error) {
	var locations []Location
	if err := c.get("/hub/api/v1/locations", nil, &locations); err != nil {
		return nil, err
	}
	return locations, nil
}

// ListRooms 查询位置某日的每日清扫房间列表
func (c *Client) ListRooms(locationID int64, date string) ([]Room, error) {
	var rooms []Room
	err := c.get("/hub/api/v1/rooms", map[string]string{
		"location_id": fmt.Sprintf("%d", locationID),
		"date":        date,
	}, &rooms)
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

// UserName 解析用户显示名，失败时回退为用户ID
// Names are cached for the process lifetime; display names change rarely
// enough that staleness is acceptable for audit labels.
func (c *Client) UserName(userID string) string {
	if userID == "" {
		return ""
	}

	c.mu.RLock()
	name, ok := c.nameCache[userID]
	c.mu.RUnlock()
	if ok {
		return name
	}

	var user struct {
		DisplayName string `json:"display_name"`
	}
	if err := c.get("/hub/api/v1/users/"+userID, nil, &user); err != nil {
		c.logger.Debug("Failed to resolve user name, falling back to id",
			zap.String("user_id", userID), zap.Error(err))
		return userID
	}
	if user.DisplayName == "" {
		return userID
	}

	c.mu.Lock()
	c.nameCache[userID] = user.DisplayName
	c.mu.Unlock()
	return user.DisplayName
}

// Can 委托宿主权限系统检查某用户是否持有某权限点
func (c *Client) Can(userID string, capability domain.Capability) (bool, error) {
	var result struct {
		Allowed bool `json:"allowed"`
	}
	err := c.get("/hub/api/v1/permissions/check", map[string]string{
		"user_id":    userID,
		"capability": string(capability),
	}, &result)
	if err != nil {
		return false, err
	}
	return result.Allowed, nil
}
