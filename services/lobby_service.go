// services/lobby_service.go - Lobby tables: membership, host controls and abandonment
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"decantry/config"
	"decantry/models"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TableRegistry manages tables and seats. A player holds at most one seat; every path that
// seats a player first evicts them from any other table in the same transaction.
type TableRegistry struct {
	db    *gorm.DB
	lc    *lifecycle
	clock *RoundClock
	game  config.GameConfig
}

func NewTableRegistry(db *gorm.DB, clock *RoundClock, game config.GameConfig) *TableRegistry {
	return &TableRegistry{
		db:    db,
		lc:    &lifecycle{clock: clock, game: game},
		clock: clock,
		game:  game,
	}
}

type CreateTableParams struct {
	Name       string
	Password   string
	IsPrivate  bool
	Mode       string
	MaxPlayers int
}

// SettingsParams carries a partial settings update; nil fields are left unchanged. An empty
// Password removes the password.
type SettingsParams struct {
	MaxPlayers *int
	Password   *string
	IsPrivate  *bool
}

// TableSummary is a table as shown in listings.
type TableSummary struct {
	ID             uint               `json:"id"`
	Name           string             `json:"name"`
	IsPrivate      bool               `json:"is_private"`
	HasPassword    bool               `json:"has_password"`
	MaxPlayers     int                `json:"max_players"`
	CurrentPlayers int64              `json:"current_players"`
	Mode           models.GameMode    `json:"mode"`
	Status         models.TableStatus `json:"status"`
	HostID         uint               `json:"host_id"`
	HostName       string             `json:"host_name"`
	CreatedAt      time.Time          `json:"created_at"`
}

type Pagination struct {
	TotalItems  int64 `json:"totalItems"`
	TotalPages  int   `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
	Limit       int   `json:"limit"`
}

type RoomMember struct {
	PlayerID      uint      `json:"id"`
	Username      string    `json:"username"`
	IsReady       bool      `json:"is_ready"`
	IsInGame      bool      `json:"in_game"`
	SessionPoints int       `json:"points"`
	IsHost        bool      `json:"is_host"`
	JoinedAt      time.Time `json:"joined_at"`
}

// Room is a member's view of their table.
type Room struct {
	Table   TableSummary `json:"table"`
	Members []RoomMember `json:"members"`
	IsHost  bool         `json:"isHost"`
	GameID  string       `json:"gameId,omitempty"`
}

// ================== TABLE LIFECYCLE ==================

// CreateTable seats the caller as host and sole member of a new table.
func (r *TableRegistry) CreateTable(ctx context.Context, playerID uint, p CreateTableParams) (*models.Table, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, invalid("Table name is required")
	}
	if len(name) > 100 {
		return nil, invalid("Table name is too long")
	}

	mode := models.ModeCasual
	if p.Mode != "" {
		m, ok := models.ParseGameMode(p.Mode)
		if !ok {
			return nil, invalid("Unknown game mode %q", p.Mode)
		}
		mode = m
	}

	maxPlayers := p.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = r.game.DefaultMaxPlayers
	}
	if err := r.checkCapacity(maxPlayers); err != nil {
		return nil, err
	}

	hash, err := hashPassword(p.Password)
	if err != nil {
		return nil, err
	}

	table := &models.Table{
		Name:         name,
		PasswordHash: hash,
		IsPrivate:    p.IsPrivate,
		MaxPlayers:   maxPlayers,
		Mode:         mode,
		HostID:       playerID,
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.evict(tx, playerID, 0); err != nil {
			return err
		}
		if err := tx.Create(table).Error; err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
		return seat(tx, table.ID, playerID, r.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"table_id": table.ID, "host_id": playerID, "mode": mode}).Info("🎲 Table created")
	return table, nil
}

// JoinTable seats the player at the table. Re-joining a table the player already sits at is a
// no-op and never evicts.
func (r *TableRegistry) JoinTable(ctx context.Context, playerID, tableID uint, password string) (*models.Table, error) {
	db := r.db.WithContext(ctx)

	table, err := findTable(db, tableID)
	if err != nil {
		return nil, err
	}
	member, err := findMember(db, tableID, playerID)
	if err != nil {
		return nil, err
	}
	if member != nil {
		return table, nil
	}
	if !passwordMatches(table, password) {
		return nil, forbidden("Incorrect password")
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		prior, err := seatsOf(tx, playerID)
		if err != nil {
			return err
		}
		locked, err := lockTables(tx, append(prior, tableID))
		if err != nil {
			return err
		}
		target, ok := locked[tableID]
		if !ok {
			return notFound("Table not found")
		}
		table = target

		if existing, err := findMember(tx, tableID, playerID); err != nil || existing != nil {
			return err
		}
		count, err := countMembers(tx, tableID)
		if err != nil {
			return err
		}
		if count >= int64(target.MaxPlayers) {
			return preconditionFailed("Table is full")
		}

		for _, id := range prior {
			if err := r.removeSeat(tx, locked[id], playerID); err != nil {
				return err
			}
		}
		return seat(tx, tableID, playerID, r.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"table_id": tableID, "player_id": playerID}).Info("👋 Player joined table")
	return table, nil
}

// LeaveTable gives up the player's seat. Leaving a table the player does not sit at is a no-op.
func (r *TableRegistry) LeaveTable(ctx context.Context, playerID, tableID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table, err := lockTable(tx, tableID)
		if err != nil {
			return err
		}
		member, err := findMember(tx, tableID, playerID)
		if err != nil || member == nil {
			return err
		}
		return r.removeSeat(tx, table, playerID)
	})
}

// ================== QUERIES ==================

type tableRow struct {
	models.Table
	CurrentPlayers int64
	HostName       string
	Playing        bool
}

func (row tableRow) summary() TableSummary {
	status := models.TableWaiting
	if row.Playing {
		status = models.TablePlaying
	}
	return TableSummary{
		ID:             row.ID,
		Name:           row.Name,
		IsPrivate:      row.IsPrivate,
		HasPassword:    row.HasPassword(),
		MaxPlayers:     row.MaxPlayers,
		CurrentPlayers: row.CurrentPlayers,
		Mode:           row.Mode,
		Status:         status,
		HostID:         row.HostID,
		HostName:       row.HostName,
		CreatedAt:      row.CreatedAt,
	}
}

const tableSummarySelect = `game_tables.*,
	(SELECT COUNT(*) FROM table_members tm WHERE tm.table_id = game_tables.id) AS current_players,
	COALESCE(players.username, '') AS host_name,
	EXISTS (SELECT 1 FROM game_sessions gs WHERE gs.active_table_id = game_tables.id) AS playing`

// Bounds for table listing.
const (
	MaxListPage  = 10000
	MaxListLimit = 50
)

// ListTables returns public tables that have at least one member, newest first.
func (r *TableRegistry) ListTables(ctx context.Context, page, limit int, search string) ([]TableSummary, Pagination, error) {
	if page < 1 {
		page = 1
	}
	page = min(page, MaxListPage)
	if limit < 1 {
		limit = 10
	}
	limit = min(limit, MaxListLimit)

	base := r.db.WithContext(ctx).Model(&models.Table{}).
		Where("game_tables.is_private = ?", false).
		Where("EXISTS (SELECT 1 FROM table_members tm WHERE tm.table_id = game_tables.id)")
	if search = strings.TrimSpace(search); search != "" {
		base = base.Where("LOWER(game_tables.name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	base = base.Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to count tables: %w", err)
	}

	var rows []tableRow
	err := base.Select(tableSummarySelect).
		Joins("LEFT JOIN players ON players.id = game_tables.host_id").
		Order("game_tables.created_at DESC, game_tables.id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("failed to list tables: %w", err)
	}

	tables := make([]TableSummary, 0, len(rows))
	for _, row := range rows {
		tables = append(tables, row.summary())
	}
	pagination := Pagination{
		TotalItems:  total,
		TotalPages:  int((total + int64(limit) - 1) / int64(limit)),
		CurrentPage: page,
		Limit:       limit,
	}
	return tables, pagination, nil
}

// GetRoom returns the table and its members to a member of the table.
func (r *TableRegistry) GetRoom(ctx context.Context, playerID, tableID uint) (*Room, error) {
	db := r.db.WithContext(ctx)

	var rows []tableRow
	err := db.Model(&models.Table{}).
		Select(tableSummarySelect).
		Joins("LEFT JOIN players ON players.id = game_tables.host_id").
		Where("game_tables.id = ?", tableID).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load table: %w", err)
	}
	if len(rows) == 0 {
		return nil, notFound("Table not found")
	}
	if _, err := requireMember(db, tableID, playerID); err != nil {
		return nil, err
	}

	var members []RoomMember
	err = db.Model(&models.TableMember{}).
		Select(`table_members.player_id, COALESCE(players.username, '') AS username, table_members.is_ready,
			table_members.is_in_game, table_members.session_points, table_members.joined_at`).
		Joins("LEFT JOIN players ON players.id = table_members.player_id").
		Where("table_members.table_id = ?", tableID).
		Order("table_members.joined_at ASC, table_members.player_id ASC").
		Scan(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load members: %w", err)
	}

	table := rows[0]
	for i := range members {
		members[i].IsHost = members[i].PlayerID == table.HostID
	}
	room := &Room{Table: table.summary(), Members: members, IsHost: table.IsHost(playerID)}

	if s, err := activeSession(db, tableID); err != nil {
		return nil, err
	} else if s != nil {
		room.GameID = s.GameID
	}
	return room, nil
}

// ================== HOST CONTROLS ==================

func (r *TableRegistry) UpdateMode(ctx context.Context, hostID, tableID uint, mode string) (*models.Table, error) {
	m, ok := models.ParseGameMode(mode)
	if !ok {
		return nil, invalid("Unknown game mode %q", mode)
	}
	var table *models.Table
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := r.lockIdleTableAsHost(tx, hostID, tableID)
		if err != nil {
			return err
		}
		table = t
		table.Mode = m
		return tx.Model(table).Update("mode", m).Error
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (r *TableRegistry) UpdateSettings(ctx context.Context, hostID, tableID uint, p SettingsParams) (*models.Table, error) {
	updates := map[string]interface{}{}
	if p.MaxPlayers != nil {
		if err := r.checkCapacity(*p.MaxPlayers); err != nil {
			return nil, err
		}
		updates["max_players"] = *p.MaxPlayers
	}
	if p.Password != nil {
		hash, err := hashPassword(*p.Password)
		if err != nil {
			return nil, err
		}
		updates["password_hash"] = hash
	}
	if p.IsPrivate != nil {
		updates["is_private"] = *p.IsPrivate
	}

	var table *models.Table
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := r.lockIdleTableAsHost(tx, hostID, tableID)
		if err != nil {
			return err
		}
		table = t
		if p.MaxPlayers != nil {
			count, err := countMembers(tx, tableID)
			if err != nil {
				return err
			}
			if int64(*p.MaxPlayers) < count {
				return preconditionFailed("Max players cannot be below the current %d players", count)
			}
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(table).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update table: %w", err)
		}
		return tx.First(table, tableID).Error
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// Kick removes another member from the table.
func (r *TableRegistry) Kick(ctx context.Context, hostID, tableID, memberID uint) error {
	if hostID == memberID {
		return invalid("You cannot kick yourself")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table, err := r.lockTableAsHost(tx, hostID, tableID)
		if err != nil {
			return err
		}
		member, err := findMember(tx, tableID, memberID)
		if err != nil {
			return err
		}
		if member == nil {
			return notFound("Player is not at this table")
		}
		log.WithFields(log.Fields{"table_id": tableID, "player_id": memberID}).Info("🚪 Player kicked")
		return r.removeSeat(tx, table, memberID)
	})
}

// TransferHost hands the host capability to another member.
func (r *TableRegistry) TransferHost(ctx context.Context, hostID, tableID, newHostID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table, err := r.lockTableAsHost(tx, hostID, tableID)
		if err != nil {
			return err
		}
		member, err := findMember(tx, tableID, newHostID)
		if err != nil {
			return err
		}
		if member == nil {
			return notFound("New host must be a member of this table")
		}
		return tx.Model(table).Update("host_id", newHostID).Error
	})
}

// ResetTable ends any running game and returns every member to the lobby, not ready.
func (r *TableRegistry) ResetTable(ctx context.Context, hostID, tableID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := r.lockTableAsHost(tx, hostID, tableID); err != nil {
			return err
		}
		if _, err := r.lc.finishTable(tx, tableID); err != nil {
			return err
		}
		return resetMembers(tx, tableID)
	})
}

// ================== ABANDONMENT ==================

// Forfeit takes the player out of the running game while keeping their seat. Their results
// stay; if nobody is left in game the session ends.
func (r *TableRegistry) Forfeit(ctx context.Context, playerID, tableID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockTable(tx, tableID); err != nil {
			return err
		}
		if _, err := requireMember(tx, tableID, playerID); err != nil {
			return err
		}
		err := tx.Model(&models.TableMember{}).
			Where("table_id = ? AND player_id = ?", tableID, playerID).
			Updates(map[string]interface{}{"is_in_game": false, "is_ready": false}).Error
		if err != nil {
			return fmt.Errorf("failed to forfeit: %w", err)
		}
		log.WithFields(log.Fields{"table_id": tableID, "player_id": playerID}).Info("🏳️ Player forfeited")
		return r.settleTable(tx, tableID)
	})
}

// ================== HELPERS ==================

func (r *TableRegistry) checkCapacity(maxPlayers int) error {
	if maxPlayers < r.game.MinPlayers || maxPlayers > r.game.MaxPlayers {
		return invalid("Max players must be between %d and %d", r.game.MinPlayers, r.game.MaxPlayers)
	}
	return nil
}

func (r *TableRegistry) lockTableAsHost(tx *gorm.DB, hostID, tableID uint) (*models.Table, error) {
	table, err := lockTable(tx, tableID)
	if err != nil {
		return nil, err
	}
	if !table.IsHost(hostID) {
		return nil, forbidden("Only the host can do this")
	}
	return table, nil
}

// lockIdleTableAsHost additionally refuses while a game is running.
func (r *TableRegistry) lockIdleTableAsHost(tx *gorm.DB, hostID, tableID uint) (*models.Table, error) {
	table, err := r.lockTableAsHost(tx, hostID, tableID)
	if err != nil {
		return nil, err
	}
	status, err := tableStatus(tx, tableID)
	if err != nil {
		return nil, err
	}
	if status == models.TablePlaying {
		return nil, preconditionFailed("Cannot change settings while a game is in progress")
	}
	return table, nil
}

// evict removes the player from every table other than keep.
func (r *TableRegistry) evict(tx *gorm.DB, playerID, keep uint) error {
	prior, err := seatsOf(tx, playerID)
	if err != nil {
		return err
	}
	ids := prior[:0]
	for _, id := range prior {
		if id != keep {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	locked, err := lockTables(tx, ids)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if table, ok := locked[id]; ok {
			if err := r.removeSeat(tx, table, playerID); err != nil {
				return err
			}
		}
	}
	return nil
}

// removeSeat deletes the player's seat at a locked table. An emptied table is destroyed with its
// invites; otherwise a departing host is replaced by the longest-seated member and the running
// session is settled against the remaining in-game members.
func (r *TableRegistry) removeSeat(tx *gorm.DB, table *models.Table, playerID uint) error {
	if table == nil {
		return nil
	}
	err := tx.Where("table_id = ? AND player_id = ?", table.ID, playerID).Delete(&models.TableMember{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	remaining, err := countMembers(tx, table.ID)
	if err != nil {
		return err
	}
	if remaining == 0 {
		return r.destroy(tx, table.ID)
	}

	if table.IsHost(playerID) {
		var next models.TableMember
		err := tx.Where("table_id = ?", table.ID).Order("joined_at ASC, player_id ASC").Take(&next).Error
		if err != nil {
			return fmt.Errorf("failed to pick new host: %w", err)
		}
		if err := tx.Model(table).Update("host_id", next.PlayerID).Error; err != nil {
			return fmt.Errorf("failed to reassign host: %w", err)
		}
		log.WithFields(log.Fields{"table_id": table.ID, "host_id": next.PlayerID}).Info("👑 Host reassigned")
	}
	return r.settleTable(tx, table.ID)
}

func (r *TableRegistry) destroy(tx *gorm.DB, tableID uint) error {
	if _, err := r.lc.finishTable(tx, tableID); err != nil {
		return err
	}
	if err := tx.Where("table_id = ?", tableID).Delete(&models.TableInvite{}).Error; err != nil {
		return fmt.Errorf("failed to delete invites: %w", err)
	}
	if err := tx.Delete(&models.Table{}, tableID).Error; err != nil {
		return fmt.Errorf("failed to delete table: %w", err)
	}
	log.WithField("table_id", tableID).Info("🧹 Empty table removed")
	return nil
}

func (r *TableRegistry) settleTable(tx *gorm.DB, tableID uint) error {
	s, err := activeSession(tx, tableID)
	if err != nil || s == nil {
		return err
	}
	return r.lc.settle(tx, s)
}

func seat(tx *gorm.DB, tableID, playerID uint, now time.Time) error {
	member := models.TableMember{TableID: tableID, PlayerID: playerID, JoinedAt: now}
	err := tx.Create(&member).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return preconditionFailed("You already joined another table, try again")
	}
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

func seatsOf(tx *gorm.DB, playerID uint) ([]uint, error) {
	var ids []uint
	if err := tx.Model(&models.TableMember{}).Where("player_id = ?", playerID).Pluck("table_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load memberships: %w", err)
	}
	return ids, nil
}

// lockTables locks the given tables in ascending id order so concurrent multi-table moves cannot
// deadlock. Missing tables are absent from the result.
func lockTables(tx *gorm.DB, ids []uint) (map[uint]*models.Table, error) {
	sorted := append([]uint(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var tables []models.Table
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).
		Order("id ASC").
		Find(&tables).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock tables: %w", err)
	}
	locked := make(map[uint]*models.Table, len(tables))
	for i := range tables {
		locked[tables[i].ID] = &tables[i]
	}
	return locked, nil
}

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func passwordMatches(table *models.Table, password string) bool {
	if !table.HasPassword() {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(table.PasswordHash), []byte(password)) == nil
}
