package config

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"pantry-recipes/internal/pkg/common"
)

// EmojiEntry 一個表情符號及其關鍵字
type EmojiEntry struct {
	Emoji    string   `mapstructure:"emoji" json:"emoji"`
	Keywords []string `mapstructure:"keywords" json:"keywords"`
}

// EmojiCatalog 不可變的表情符號目錄，重新載入時整個替換
type EmojiCatalog struct {
	entries  []EmojiEntry
	keywords map[string]string
	// 依長度遞減，子字串比對時優先較長的關鍵字
	ordered []string
}

var defaultEmojiEntries = []EmojiEntry{
	{Emoji: "🍎", Keywords: []string{"apple", "apples"}},
	{Emoji: "🍌", Keywords: []string{"banana", "bananas"}},
	{Emoji: "🍋", Keywords: []string{"lemon", "lemons", "lime", "limes"}},
	{Emoji: "🍊", Keywords: []string{"orange", "oranges"}},
	{Emoji: "🍅", Keywords: []string{"tomato", "tomatoes"}},
	{Emoji: "🥕", Keywords: []string{"carrot", "carrots"}},
	{Emoji: "🧅", Keywords: []string{"onion", "onions", "shallot", "shallots"}},
	{Emoji: "🧄", Keywords: []string{"garlic"}},
	{Emoji: "🥔", Keywords: []string{"potato", "potatoes"}},
	{Emoji: "🥛", Keywords: []string{"milk", "cream"}},
	{Emoji: "🧀", Keywords: []string{"cheese", "cheddar", "parmesan", "mozzarella"}},
	{Emoji: "🧈", Keywords: []string{"butter"}},
	{Emoji: "🥚", Keywords: []string{"egg", "eggs"}},
	{Emoji: "🍞", Keywords: []string{"bread", "loaf"}},
	{Emoji: "🌾", Keywords: []string{"flour", "wheat"}},
	{Emoji: "🍚", Keywords: []string{"rice"}},
	{Emoji: "🍝", Keywords: []string{"pasta", "spaghetti", "noodles"}},
	{Emoji: "🧂", Keywords: []string{"salt", "pepper"}},
	{Emoji: "🍬", Keywords: []string{"sugar"}},
	{Emoji: "🍯", Keywords: []string{"honey"}},
	{Emoji: "🫒", Keywords: []string{"olive", "olives", "olive oil"}},
	{Emoji: "🍗", Keywords: []string{"chicken"}},
	{Emoji: "🥩", Keywords: []string{"beef", "steak", "pork", "lamb"}},
	{Emoji: "🥓", Keywords: []string{"bacon"}},
	{Emoji: "🐟", Keywords: []string{"fish", "salmon", "tuna", "cod"}},
	{Emoji: "🦐", Keywords: []string{"shrimp", "prawn", "prawns"}},
	{Emoji: "🥬", Keywords: []string{"lettuce", "spinach", "kale", "cabbage"}},
	{Emoji: "🌶️", Keywords: []string{"chili", "chilli", "jalapeno", "jalapeño"}},
	{Emoji: "🍄", Keywords: []string{"mushroom", "mushrooms"}},
}

// DefaultEmojiCatalog 未設定來源時使用的內建目錄
func DefaultEmojiCatalog() *EmojiCatalog {
	return NewEmojiCatalog(defaultEmojiEntries)
}

// NewEmojiCatalog 建立目錄；同一關鍵字出現多次時以第一筆為準
func NewEmojiCatalog(entries []EmojiEntry) *EmojiCatalog {
	c := &EmojiCatalog{
		entries:  make([]EmojiEntry, 0, len(entries)),
		keywords: make(map[string]string),
	}
	for _, e := range entries {
		if e.Emoji == "" {
			continue
		}
		kws := make([]string, 0, len(e.Keywords))
		for _, kw := range e.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			kws = append(kws, kw)
			if _, exists := c.keywords[kw]; !exists {
				c.keywords[kw] = e.Emoji
				c.ordered = append(c.ordered, kw)
			}
		}
		c.entries = append(c.entries, EmojiEntry{Emoji: e.Emoji, Keywords: kws})
	}
	sort.SliceStable(c.ordered, func(i, j int) bool {
		return len(c.ordered[i]) > len(c.ordered[j])
	})
	return c
}

// Len 表情符號數量
func (c *EmojiCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Suggest 依名稱建議表情符號：先整個名稱，再由後往前逐字，最後以最長的關鍵字子字串比對；找不到回傳空字串
func (c *EmojiCatalog) Suggest(name string) string {
	if c == nil {
		return ""
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	if e, ok := c.keywords[name]; ok {
		return e
	}

	words := strings.Fields(name)
	for i := len(words) - 1; i >= 0; i-- {
		if e, ok := c.keywords[strings.Trim(words[i], ",.")]; ok {
			return e
		}
	}

	for _, kw := range c.ordered {
		if strings.Contains(name, kw) {
			return c.keywords[kw]
		}
	}
	return ""
}

// EmojiSource 持有目前的目錄，可從檔案熱重載或從 URL 下載
type EmojiSource struct {
	cfg     EmojiConfig
	v       *viper.Viper
	client  *resty.Client
	current atomic.Pointer[EmojiCatalog]
}

// LoadEmojiCatalog 依設定載入目錄；未設定來源時使用內建目錄
func LoadEmojiCatalog(cfg EmojiConfig) (*EmojiSource, error) {
	s := &EmojiSource{cfg: cfg}

	switch {
	case cfg.File != "":
		s.v = viper.New()
		s.v.SetConfigFile(cfg.File)
		if err := s.Reload(); err != nil {
			return nil, err
		}
		if cfg.Watch {
			s.v.OnConfigChange(func(e fsnotify.Event) {
				common.LogInfo("Emoji catalog changed", zap.String("file", e.Name), zap.String("op", e.Op.String()))
				if err := s.Reload(); err != nil {
					common.LogError("Failed to reload emoji catalog, keeping previous version", zap.Error(err))
				}
			})
			s.v.WatchConfig()
		}
	case cfg.URL != "":
		s.client = resty.New().
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json")
		if err := s.Reload(); err != nil {
			return nil, err
		}
	default:
		s.current.Store(DefaultEmojiCatalog())
	}

	common.LogInfo("Emoji catalog loaded", zap.Int("emojis", s.Catalog().Len()))
	return s, nil
}

// Catalog 目前版本的目錄
func (s *EmojiSource) Catalog() *EmojiCatalog {
	return s.current.Load()
}

// Suggest 以目前版本建議表情符號
func (s *EmojiSource) Suggest(name string) string {
	if s == nil {
		return ""
	}
	return s.Catalog().Suggest(name)
}

// Reload 重新讀取來源；失敗時保留舊版本
func (s *EmojiSource) Reload() error {
	var (
		entries []EmojiEntry
		err     error
	)
	switch {
	case s.v != nil:
		entries, err = s.readFile()
	case s.client != nil:
		entries, err = s.fetch()
	default:
		return nil
	}
	if err != nil {
		return err
	}
	s.current.Store(NewEmojiCatalog(entries))
	return nil
}

func (s *EmojiSource) readFile() ([]EmojiEntry, error) {
	if err := s.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read emoji catalog %s: %w", s.cfg.File, err)
	}
	return decodeEmojiEntries(s.v)
}

func (s *EmojiSource) fetch() ([]EmojiEntry, error) {
	resp, err := s.client.R().Get(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch emoji catalog: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("emoji catalog returned %d", resp.StatusCode())
	}

	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(resp.Body())); err != nil {
		return nil, fmt.Errorf("failed to parse emoji catalog: %w", err)
	}
	return decodeEmojiEntries(v)
}

func decodeEmojiEntries(v *viper.Viper) ([]EmojiEntry, error) {
	var entries []EmojiEntry
	if err := v.UnmarshalKey("emojis", &entries); err != nil {
		return nil, fmt.Errorf("failed to decode emoji catalog: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("emoji catalog is empty")
	}
	return entries, nil
}
