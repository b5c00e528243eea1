package dataroom

import "time"

// Theme values accepted for User.Theme.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// RootFolderName names the folder created with every dataroom.
const RootFolderName = "root"

// User is an account that owns datarooms.
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Email        string    `gorm:"size:255;not null;uniqueIndex:uq_users_email"`
	PasswordHash string    `gorm:"size:255;not null"`
	Theme        string    `gorm:"size:10;not null;default:light"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName returns the users table name.
func (User) TableName() string { return "users" }

// Dataroom is a named container owned by one user.
type Dataroom struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Name         string    `gorm:"size:255;not null;index"`
	OwnerID      int64     `gorm:"not null;index"`
	RootFolderID *int64    `gorm:"index"`
	CreatedAt    time.Time `gorm:"not null"`
}

// TableName returns the datarooms table name.
func (Dataroom) TableName() string { return "datarooms" }

// Folder is one node of a dataroom's tree. A nil ParentID marks the root.
type Folder struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	Name       string    `gorm:"size:255;not null;uniqueIndex:uq_folder_siblings,priority:3"`
	DataroomID int64     `gorm:"not null;index;uniqueIndex:uq_folder_siblings,priority:1"`
	ParentID   *int64    `gorm:"index;uniqueIndex:uq_folder_siblings,priority:2"`
	CreatedAt  time.Time `gorm:"not null"`
}

// TableName returns the folders table name.
func (Folder) TableName() string { return "folders" }

// File is an uploaded PDF. StoredName is the blob key and never changes on rename.
type File struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	FolderID       int64     `gorm:"not null;index;uniqueIndex:uq_file_siblings,priority:1"`
	Name           string    `gorm:"size:255;not null;uniqueIndex:uq_file_siblings,priority:2"`
	StoredName     string    `gorm:"size:255;not null"`
	MimeType       string    `gorm:"size:128;not null"`
	SizeBytes      int64     `gorm:"not null"`
	ChecksumSHA256 string    `gorm:"column:checksum_sha256;size:64;not null"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName returns the files table name.
func (File) TableName() string { return "files" }

// FileText holds the extracted text of a file for content search.
type FileText struct {
	FileID       int64  `gorm:"primaryKey;autoIncrement:false"`
	ContentPlain string `gorm:"type:text;not null;default:''"`
}

// TableName returns the file_texts table name.
func (FileText) TableName() string { return "file_texts" }
