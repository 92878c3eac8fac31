package protocol

import "github.com/brinehollow/placewall/internal/model"

// Response kinds, per SPEC_FULL.md §6's `{"rt":"<kind>", ...}` envelope.
const (
	RTAuthSuccessful     = "authSuccessful"
	RTReAuthSuccessful   = "reAuthSuccessful"
	RTFullCanvas         = "fullCanvas"
	RTTileUpdate         = "tileUpdate"
	RTColorList          = "colorList"
	RTIncrementTileCount = "incrementTileCount"
	RTLevelUp            = "levelUp"
	RTUserCount          = "userCount"
	RTKicked             = "kicked"
	RTAnnouncement       = "announcement"
	RTNameSetSuccess     = "nameSetSuccess"
	RTBanClickSuccess    = "ban_click_success"
	RTDisconnecting      = "disconnecting"
	RTTileInfo           = "tileInfo"
	RTTileHistory        = "tileHistory"
	RTError              = "error"
)

// EconomyFields mirrors the quota/progression subset of model.User exposed
// to clients on auth and level-up.
type EconomyFields struct {
	RemainingTiles   int `json:"remainingTiles"`
	MaxTiles         int `json:"maxTiles"`
	TileRegenSeconds int `json:"tileRegenSeconds"`
	Level            int `json:"level"`
	ProgressInLevel  int `json:"progressInLevel"`
	TilesToNextLevel int `json:"tilesToNextLevel"`
}

func economyOf(u *model.User) EconomyFields {
	return EconomyFields{
		RemainingTiles:   u.RemainingTiles,
		MaxTiles:         u.MaxTiles,
		TileRegenSeconds: u.TileRegenSeconds,
		Level:            u.Level,
		ProgressInLevel:  u.ProgressInLevel,
		TilesToNextLevel: u.TilesToNextLevel,
	}
}

type AuthSuccessfulResponse struct {
	RT     string `json:"rt"`
	UserID string `json:"userID"`
	EconomyFields
}

func AuthSuccessful(u *model.User) AuthSuccessfulResponse {
	return AuthSuccessfulResponse{RT: RTAuthSuccessful, UserID: u.UUID, EconomyFields: economyOf(u)}
}

type ReAuthSuccessfulResponse struct {
	RT              string `json:"rt"`
	UserID          string `json:"userID"`
	Name            string `json:"name"`
	IsAdministrator bool   `json:"isAdministrator"`
	EconomyFields
}

func ReAuthSuccessful(u *model.User, isAdmin bool) ReAuthSuccessfulResponse {
	return ReAuthSuccessfulResponse{
		RT: RTReAuthSuccessful, UserID: u.UUID, Name: u.Name,
		IsAdministrator: isAdmin, EconomyFields: economyOf(u),
	}
}

// FullCanvasResponse carries the raw (uncompressed) color-id plane for
// JSON clients — the binary framing sends the zlib-compressed blob instead
// (SPEC_FULL.md §6: "Send snapshot blob (binary) or JSON array").
type FullCanvasResponse struct {
	RT         string `json:"rt"`
	EdgeLength int    `json:"edgeLength"`
	Tiles      []int  `json:"tiles"`
	Generation uint64 `json:"generation"`
}

func FullCanvas(edgeLength int, plane []byte, generation uint64) FullCanvasResponse {
	tiles := make([]int, len(plane))
	for i, b := range plane {
		tiles[i] = int(b)
	}
	return FullCanvasResponse{RT: RTFullCanvas, EdgeLength: edgeLength, Tiles: tiles, Generation: generation}
}

type TileUpdateResponse struct {
	RT      string `json:"rt"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	ColorID uint8  `json:"colorID"`
}

func TileUpdate(x, y int, colorID uint8) TileUpdateResponse {
	return TileUpdateResponse{RT: RTTileUpdate, X: x, Y: y, ColorID: colorID}
}

type ColorListResponse struct {
	RT     string              `json:"rt"`
	Colors []model.PaletteEntry `json:"colors"`
}

func ColorList(palette []model.PaletteEntry) ColorListResponse {
	return ColorListResponse{RT: RTColorList, Colors: palette}
}

type IncrementTileCountResponse struct {
	RT     string `json:"rt"`
	Amount int    `json:"amount"`
}

func IncrementTileCount(amount int) IncrementTileCountResponse {
	return IncrementTileCountResponse{RT: RTIncrementTileCount, Amount: amount}
}

type LevelUpResponse struct {
	RT string `json:"rt"`
	EconomyFields
}

func LevelUp(u *model.User) LevelUpResponse {
	return LevelUpResponse{RT: RTLevelUp, EconomyFields: economyOf(u)}
}

type UserCountResponse struct {
	RT    string `json:"rt"`
	Count int    `json:"count"`
}

func UserCount(count int) UserCountResponse {
	return UserCountResponse{RT: RTUserCount, Count: count}
}

type KickedResponse struct {
	RT          string `json:"rt"`
	Reason      string `json:"reason"`
	ButtonLabel string `json:"buttonLabel"`
}

func Kicked(reason, buttonLabel string) KickedResponse {
	return KickedResponse{RT: RTKicked, Reason: reason, ButtonLabel: buttonLabel}
}

type AnnouncementResponse struct {
	RT      string `json:"rt"`
	Message string `json:"message"`
}

func Announcement(message string) AnnouncementResponse {
	return AnnouncementResponse{RT: RTAnnouncement, Message: message}
}

type NameSetSuccessResponse struct {
	RT   string `json:"rt"`
	Name string `json:"name"`
}

func NameSetSuccess(name string) NameSetSuccessResponse {
	return NameSetSuccessResponse{RT: RTNameSetSuccess, Name: name}
}

type BanClickSuccessResponse struct {
	RT string `json:"rt"`
}

func BanClickSuccess() BanClickSuccessResponse {
	return BanClickSuccessResponse{RT: RTBanClickSuccess}
}

type DisconnectingResponse struct {
	RT string `json:"rt"`
}

func Disconnecting() DisconnectingResponse {
	return DisconnectingResponse{RT: RTDisconnecting}
}

type TileInfoResponse struct {
	RT           string `json:"rt"`
	LastModifier string `json:"lastModifier"`
	PlaceTime    int64  `json:"placeTime"`
}

func TileInfo(lastModifier string, placeTime int64) TileInfoResponse {
	return TileInfoResponse{RT: RTTileInfo, LastModifier: lastModifier, PlaceTime: placeTime}
}

type TileHistoryEntry struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	ColorID   uint8  `json:"colorID"`
	PlaceTime int64  `json:"placeTime"`
	Modifier  string `json:"modifier"`
}

type TileHistoryResponse struct {
	RT      string             `json:"rt"`
	Entries []TileHistoryEntry `json:"entries"`
}

func TileHistory(entries []TileHistoryEntry) TileHistoryResponse {
	return TileHistoryResponse{RT: RTTileHistory, Entries: entries}
}

type ErrorResponse struct {
	ResponseType string `json:"responseType"`
	ErrorMessage string `json:"errorMessage"`
}

func Error(message string) ErrorResponse {
	return ErrorResponse{ResponseType: "error", ErrorMessage: message}
}
