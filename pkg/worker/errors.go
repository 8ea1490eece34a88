package worker

import "errors"

var (
	// ErrWorkerRunning is returned when Run is called on a worker that is already running.
	ErrWorkerRunning = errors.New("worker is already running")

	// ErrSourceMissing is returned when source_dir does not exist or is not a directory.
	ErrSourceMissing = errors.New("source directory not found")

	// ErrBackupDir is returned when backup_dir cannot be created.
	ErrBackupDir = errors.New("cannot create backup directory")

	// ErrJournal is returned when the backup journal cannot be opened.
	ErrJournal = errors.New("cannot open backup journal")
)
