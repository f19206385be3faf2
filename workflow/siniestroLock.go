package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireSiniestroLock serializes lifecycle writes per claim across instances
// using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB that will run the transition transaction.
func AcquireSiniestroLock(tx *gorm.DB, siniestroId int) error {
	lockName := fmt.Sprintf("siniestro:%d", siniestroId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire lifecycle lock for siniestro_id=%d", siniestroId)
	}
	return nil
}

func ReleaseSiniestroLock(tx *gorm.DB, siniestroId int) {
	lockName := fmt.Sprintf("siniestro:%d", siniestroId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}

// AcquireNumeracionLock guards SIN-YYYY-NNNN allocation.
func AcquireNumeracionLock(tx *gorm.DB, anio int) error {
	lockName := fmt.Sprintf("numeracion_siniestros:%d", anio)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire numbering lock for year=%d", anio)
	}
	return nil
}

func ReleaseNumeracionLock(tx *gorm.DB, anio int) {
	lockName := fmt.Sprintf("numeracion_siniestros:%d", anio)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
