package repository

import (
	"edu_assess_backend/internal/model"

	"gorm.io/gorm"
)

// CurriculumRepository assembles the unit -> skill -> subskill tree in
// document order. Implements service.CurriculumProvider.
type CurriculumRepository struct {
	DB *gorm.DB
}

func NewCurriculumRepository(db *gorm.DB) *CurriculumRepository {
	return &CurriculumRepository{DB: db}
}

func (r *CurriculumRepository) CurriculumTree(subject string) ([]model.CurriculumUnit, error) {
	var unitRecords []model.CurriculumUnitRecord
	if err := r.DB.Where("subject = ?", subject).Order("position asc").Find(&unitRecords).Error; err != nil {
		return nil, err
	}

	units := make([]model.CurriculumUnit, 0, len(unitRecords))
	for _, unitRec := range unitRecords {
		var skillRecords []model.CurriculumSkillRecord
		if err := r.DB.Where("unit_id = ?", unitRec.UnitID).Order("position asc").Find(&skillRecords).Error; err != nil {
			return nil, err
		}

		unit := model.CurriculumUnit{
			ID:     unitRec.UnitID,
			Title:  unitRec.Title,
			Skills: make([]model.CurriculumSkill, 0, len(skillRecords)),
		}

		for _, skillRec := range skillRecords {
			var subskillRecords []model.CurriculumSubskillRecord
			if err := r.DB.Where("skill_id = ?", skillRec.SkillID).Order("position asc").Find(&subskillRecords).Error; err != nil {
				return nil, err
			}

			skill := model.CurriculumSkill{
				ID:          skillRec.SkillID,
				Description: skillRec.Description,
				Subskills:   make([]model.CurriculumSubskill, 0, len(subskillRecords)),
			}
			for _, subRec := range subskillRecords {
				skill.Subskills = append(skill.Subskills, model.CurriculumSubskill{
					ID:          subRec.SubskillID,
					Description: subRec.Description,
				})
			}
			unit.Skills = append(unit.Skills, skill)
		}

		units = append(units, unit)
	}

	return units, nil
}
